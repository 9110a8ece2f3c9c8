package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
	"github.com/okian/triage/pkg/logger"
)

const maxAssessBody = 1 << 20

// Response headers set by POST /assess.
const (
	HeaderAssessmentID     = "X-Assessment-ID"
	HeaderIntegrityWarning = "X-Integrity-Warning"
)

// AssessDependencies defines the interface for running assessments.
type AssessDependencies interface {
	Assess(ctx context.Context, text string, vitals model.VitalsRecord) (model.RiskReport, error)
}

// assessRequest mirrors the OpenAPI schema for POST /assess. Pointers
// distinguish a missing vital from a zero value.
type assessRequest struct {
	Symptoms    string   `json:"symptoms"`
	Age         *float64 `json:"age"`
	Sex         *float64 `json:"sex"`
	HeartRate   *float64 `json:"heart_rate"`
	SystolicBP  *float64 `json:"systolic_bp"`
	DiastolicBP *float64 `json:"diastolic_bp"`
	Temperature *float64 `json:"temperature"`
}

func (a assessRequest) vitals() (model.VitalsRecord, error) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"age", a.Age}, {"sex", a.Sex}, {"heart_rate", a.HeartRate},
		{"systolic_bp", a.SystolicBP}, {"diastolic_bp", a.DiastolicBP}, {"temperature", a.Temperature},
	}
	for _, f := range fields {
		if f.v == nil {
			return model.VitalsRecord{}, fmt.Errorf("%w: missing %s", ErrBadRequest, f.name)
		}
	}
	return model.VitalsRecord{
		Age:         *a.Age,
		Sex:         *a.Sex,
		HeartRate:   *a.HeartRate,
		SystolicBP:  *a.SystolicBP,
		DiastolicBP: *a.DiastolicBP,
		Temperature: *a.Temperature,
	}, nil
}

// AssessHandler handles assessment requests.
type AssessHandler struct {
	deps   AssessDependencies
	logger logger.Logger
}

// NewAssessHandler creates a new assess handler.
func NewAssessHandler(deps AssessDependencies, log logger.Logger) *AssessHandler {
	return &AssessHandler{deps: deps, logger: log}
}

// HandleAssess handles POST /assess requests.
func (h *AssessHandler) HandleAssess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req assessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAssessBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	vitals, err := req.vitals()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	report, err := h.deps.Assess(r.Context(), req.Symptoms, vitals)
	if err != nil {
		status, code := statusFor(err)
		resp := errorResponse{Code: code, Message: err.Error()}
		var rve *routing.RoutingValidationError
		if errors.As(err, &rve) {
			resp.Raw = rve.Raw
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error(r.Context(), "assessment request failed",
				logger.Int("status", status),
				logger.String("code", code),
				logger.Error(err),
			)
		}
		writeJSON(w, status, resp)
		return
	}

	w.Header().Set(HeaderAssessmentID, report.AssessmentID)
	if !report.IntegrityOK {
		w.Header().Set(HeaderIntegrityWarning, "residual="+strconv.FormatFloat(report.Residual, 'g', 6, 64))
	}
	writeJSON(w, http.StatusOK, report)
}
