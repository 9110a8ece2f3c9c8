// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/triage/internal/adapters/repository"
	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
	"github.com/okian/triage/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Assess(ctx context.Context, text string, vitals model.VitalsRecord) (model.RiskReport, error)
	GetReport(ctx context.Context, id string) (repository.StoredReport, error)
	RecentReports(ctx context.Context, limit int) ([]repository.StoredReport, error)
	Departments() []routing.Department
	ReloadCatalog(ctx context.Context) (int, error)
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	assessHandler      *AssessHandler
	reportsHandler     *ReportsHandler
	departmentsHandler *DepartmentsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	return &Server{
		healthHandler:      NewHealthHandler(deps),
		statsHandler:       NewStatsHandler(deps),
		assessHandler:      NewAssessHandler(deps, log),
		reportsHandler:     NewReportsHandler(deps),
		departmentsHandler: NewDepartmentsHandler(deps, log),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/assess", MetricsMiddleware(s.assessHandler.HandleAssess, "assess"))
	mux.HandleFunc("/reports", MetricsMiddleware(s.reportsHandler.HandleList, "reports_list"))
	mux.HandleFunc("/reports/", MetricsMiddleware(s.reportsHandler.HandleGetReport, "reports"))
	mux.HandleFunc("/departments", MetricsMiddleware(s.departmentsHandler.HandleList, "departments"))
	mux.HandleFunc("/departments/reload", MetricsMiddleware(s.departmentsHandler.HandleReload, "departments_reload"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Raw     string `json:"raw,omitempty"`
}

// writeJSON encodes v before touching the response, so an unencodable value
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		w.Header().Del(HeaderAssessmentID)
		w.Header().Del(HeaderIntegrityWarning)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Code: "internal_error", Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
