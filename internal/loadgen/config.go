// Package loadgen drives a running triage service with synthetic patients.
package loadgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Requests   int           // Number of assessments to submit
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // Per-request HTTP timeout
	Seed       uint64        // Generator seed; equal seeds give equal cases
	OutputFile string        // Optional JSON file for the generated cases
	Verbose    bool          // Log every failed request
}

// Case is one synthetic patient, shaped as the POST /assess body.
type Case struct {
	Symptoms    string  `json:"symptoms"`
	Age         float64 `json:"age"`
	Sex         float64 `json:"sex"`
	HeartRate   float64 `json:"heart_rate"`
	SystolicBP  float64 `json:"systolic_bp"`
	DiastolicBP float64 `json:"diastolic_bp"`
	Temperature float64 `json:"temperature"`
}

// Outcome classifies one response.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess          Outcome = "success"
	OutcomeRoutingViolation Outcome = "routing_violation"
	OutcomeTimeout          Outcome = "timeout"
	OutcomeUnavailable      Outcome = "unavailable"
	OutcomeDataIntegrity    Outcome = "data_integrity"
	OutcomeFailed           Outcome = "failed"
)

// Result is the classified response to one Case.
type Result struct {
	Outcome          Outcome
	RiskScore        int
	IntegrityWarning bool
	Latency          time.Duration
}

// Stats summarizes a run.
type Stats struct {
	Submitted         int
	Successful        int
	RoutingViolations int
	Timeouts          int
	Unavailable       int
	DataIntegrity     int
	Failed            int
	IntegrityWarnings int
	RiskTotal         int
	StartTime         time.Time
	Duration          time.Duration
}

// Add folds r into s.
func (s *Stats) Add(r Result) {
	s.Submitted++
	switch r.Outcome {
	case OutcomeSuccess:
		s.Successful++
		s.RiskTotal += r.RiskScore
	case OutcomeRoutingViolation:
		s.RoutingViolations++
	case OutcomeTimeout:
		s.Timeouts++
	case OutcomeUnavailable:
		s.Unavailable++
	case OutcomeDataIntegrity:
		s.DataIntegrity++
	default:
		s.Failed++
	}
	if r.IntegrityWarning {
		s.IntegrityWarnings++
	}
}

// MeanRisk is the average risk score over successful assessments.
func (s *Stats) MeanRisk() float64 {
	if s.Successful == 0 {
		return 0
	}
	return float64(s.RiskTotal) / float64(s.Successful)
}
