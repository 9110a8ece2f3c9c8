// Package metrics provides Prometheus metrics for the triage service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Assessment pipeline
	assessments       *prometheus.CounterVec
	assessmentLatency prometheus.Histogram
	riskScore         prometheus.Histogram
	integrityWarnings prometheus.Counter
	integrityResidual prometheus.Histogram
	routingViolations prometheus.Counter

	// Collaborators
	dependencyLatency *prometheus.HistogramVec
	dependencyErrors  *prometheus.CounterVec
	llmTokens         *prometheus.CounterVec

	// Catalog
	catalogDepartments prometheus.Gauge
	catalogReloads     *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "triage",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.constLabels)

	m.assessments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "assessments_total",
		Help:        "Assessments by outcome",
		ConstLabels: labels,
	}, []string{"outcome"})

	m.assessmentLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "assessment_latency_milliseconds",
		Help:        "End-to-end assessment latency in milliseconds",
		Buckets:     []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		ConstLabels: labels,
	})

	m.riskScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "risk_score",
		Help:        "Distribution of fused risk percent",
		Buckets:     prometheus.LinearBuckets(10, 10, 10),
		ConstLabels: labels,
	})

	m.integrityWarnings = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "integrity_warnings_total",
		Help:        "Waterfalls whose contributions did not reconcile with the prediction",
		ConstLabels: labels,
	})

	m.integrityResidual = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "integrity_residual_abs",
		Help:        "Absolute waterfall residual",
		Buckets:     []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		ConstLabels: labels,
	})

	m.routingViolations = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "routing_violations_total",
		Help:        "Router answers that were not in the department catalog",
		ConstLabels: labels,
	})

	m.dependencyLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dependency_latency_milliseconds",
		Help:        "Latency of external collaborator calls",
		Buckets:     []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		ConstLabels: labels,
	}, []string{"dependency"})

	m.dependencyErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dependency_errors_total",
		Help:        "Collaborator failures by dependency and kind (timeout, unavailable)",
		ConstLabels: labels,
	}, []string{"dependency", "kind"})

	m.llmTokens = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "llm_tokens_total",
		Help:        "Language-model tokens by provider and direction",
		ConstLabels: labels,
	}, []string{"provider", "direction"})

	m.catalogDepartments = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_departments",
		Help:        "Departments in the published catalog",
		ConstLabels: labels,
	})

	m.catalogReloads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "catalog_reloads_total",
		Help:        "Catalog reload attempts by result",
		ConstLabels: labels,
	}, []string{"result"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "HTTP requests by endpoint, method and status",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})
}

// RecordAssessment counts an assessment outcome and its latency.
func RecordAssessment(outcome string, latencyMs float64) {
	globalManager.assessments.WithLabelValues(outcome).Inc()
	globalManager.assessmentLatency.Observe(latencyMs)
}

// RecordRiskScore observes a fused risk percent.
func RecordRiskScore(percent int) {
	globalManager.riskScore.Observe(float64(percent))
}

// RecordIntegrityWarning counts a non-reconciling waterfall.
func RecordIntegrityWarning(residualAbs float64) {
	globalManager.integrityWarnings.Inc()
	globalManager.integrityResidual.Observe(residualAbs)
}

// RecordRoutingViolation counts a router answer outside the catalog.
func RecordRoutingViolation() {
	globalManager.routingViolations.Inc()
}

// RecordDependencyLatency observes one collaborator call.
func RecordDependencyLatency(dependency string, latencyMs float64) {
	globalManager.dependencyLatency.WithLabelValues(dependency).Observe(latencyMs)
}

// RecordDependencyError counts a collaborator failure of the given kind.
func RecordDependencyError(dependency, kind string) {
	globalManager.dependencyErrors.WithLabelValues(dependency, kind).Inc()
}

// RecordLLMTokens adds token usage for a provider.
func RecordLLMTokens(provider string, input, output int64) {
	globalManager.llmTokens.WithLabelValues(provider, "input").Add(float64(input))
	globalManager.llmTokens.WithLabelValues(provider, "output").Add(float64(output))
}

// UpdateCatalogDepartments sets the published catalog size.
func UpdateCatalogDepartments(n int) {
	globalManager.catalogDepartments.Set(float64(n))
}

// RecordCatalogReload counts a reload attempt ("ok" or "error").
func RecordCatalogReload(result string) {
	globalManager.catalogReloads.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the registry holding the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
