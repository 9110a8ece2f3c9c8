package api

import (
	"context"
	"net/http"

	"github.com/okian/triage/internal/domain/routing"
	"github.com/okian/triage/pkg/logger"
)

// DepartmentDependencies defines the interface for catalog operations.
type DepartmentDependencies interface {
	Departments() []routing.Department
	ReloadCatalog(ctx context.Context) (int, error)
}

// DepartmentsHandler handles department catalog requests.
type DepartmentsHandler struct {
	deps   DepartmentDependencies
	logger logger.Logger
}

// NewDepartmentsHandler creates a new departments handler.
func NewDepartmentsHandler(deps DepartmentDependencies, log logger.Logger) *DepartmentsHandler {
	return &DepartmentsHandler{deps: deps, logger: log}
}

type reloadResponse struct {
	Status      string `json:"status"`
	Departments int    `json:"departments"`
}

// HandleList handles GET /departments requests.
func (h *DepartmentsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	deps := h.deps.Departments()
	if deps == nil {
		deps = []routing.Department{}
	}
	writeJSON(w, http.StatusOK, deps)
}

// HandleReload handles POST /departments/reload requests. A failed reload
// leaves the current catalog in place.
func (h *DepartmentsHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n, err := h.deps.ReloadCatalog(r.Context())
	if err != nil {
		h.logger.Warn(r.Context(), "catalog reload via api failed", logger.Error(err))
		writeError(w, http.StatusBadGateway, "reload_failed", err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{Status: "reloaded", Departments: n})
}
