package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/okian/triage/internal/adapters/repository"
	"github.com/okian/triage/internal/domain/model"
)

// ReportDependencies defines the interface for report lookups.
type ReportDependencies interface {
	GetReport(ctx context.Context, id string) (repository.StoredReport, error)
	RecentReports(ctx context.Context, limit int) ([]repository.StoredReport, error)
}

const defaultListLimit = 20

// ReportsHandler handles report requests.
type ReportsHandler struct {
	deps ReportDependencies
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(deps ReportDependencies) *ReportsHandler {
	return &ReportsHandler{deps: deps}
}

type reportResponse struct {
	AssessmentID string           `json:"assessment_id"`
	CreatedAt    string           `json:"created_at"`
	IntegrityOK  bool             `json:"integrity_ok"`
	Report       model.RiskReport `json:"report"`
}

func toResponse(stored repository.StoredReport) reportResponse {
	return reportResponse{
		AssessmentID: stored.Report.AssessmentID,
		CreatedAt:    stored.CreatedAt.UTC().Format(time.RFC3339),
		IntegrityOK:  stored.Report.IntegrityOK,
		Report:       stored.Report,
	}
}

// HandleList handles GET /reports?limit=N requests, newest first.
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: limit %q", ErrBadRequest, v))
			return
		}
		limit = n
	}
	stored, err := h.deps.RecentReports(r.Context(), limit)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	out := make([]reportResponse, 0, len(stored))
	for _, s := range stored {
		out = append(out, toResponse(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetReport handles GET /reports/{id} requests.
func (h *ReportsHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/reports/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrMissingID)
		return
	}
	stored, err := h.deps.GetReport(r.Context(), id)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(stored))
}
