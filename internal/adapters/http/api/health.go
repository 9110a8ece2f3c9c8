package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/triage/pkg/metrics"
)

// HealthHandler handles health and metrics requests.
type HealthHandler struct {
	stats StatsProvider
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(stats StatsProvider) *HealthHandler {
	return &HealthHandler{stats: stats}
}

type healthResponse struct {
	Status      string `json:"status"`
	Departments int    `json:"departments"`
}

// HandleHealth handles GET /healthz. It reports 503 until the service has
// started with a catalog.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	stats := h.stats.GetStats()
	started, _ := stats["started"].(bool)
	departments, _ := stats["departments"].(int)
	if !started || departments == 0 {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "starting", Departments: departments})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Departments: departments})
}

// HandleMetrics serves the Prometheus registry.
func (h *HealthHandler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
