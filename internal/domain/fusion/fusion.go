// Package fusion combines the text and vitals risk signals into one score.
package fusion

import (
	"fmt"
	"math"

	"github.com/okian/triage/internal/domain/model"
)

// Default fusion configuration constants.
const (
	defaultTextWeight   = 0.5
	defaultVitalsWeight = 0.5
	weightSumTolerance  = 1e-9
	maxRiskPercent      = 100
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithWeights sets the text and vitals weights. They must sum to 1.
func WithWeights(text, vitals float64) Option {
	return func(e *Engine) {
		e.textWeight = text
		e.vitalsWeight = vitals
	}
}

// Engine computes fused scores with fixed weights.
type Engine struct {
	textWeight   float64
	vitalsWeight float64
}

// New creates an Engine. Weights are validated here once, never per call.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		textWeight:   defaultTextWeight,
		vitalsWeight: defaultVitalsWeight,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.textWeight < 0 || e.vitalsWeight < 0 {
		return nil, fmt.Errorf("%w: negative weight (text=%v vitals=%v)", ErrInvalidWeights, e.textWeight, e.vitalsWeight)
	}
	if math.Abs(e.textWeight+e.vitalsWeight-1) > weightSumTolerance {
		return nil, fmt.Errorf("%w: weights sum to %v, want 1", ErrInvalidWeights, e.textWeight+e.vitalsWeight)
	}
	return e, nil
}

// Weights returns the configured text and vitals weights.
func (e *Engine) Weights() (text, vitals float64) {
	return e.textWeight, e.vitalsWeight
}

// Fuse returns the weighted average of the two scores. Inputs are not
// clamped; the sub-models are expected to emit values in [0,1].
func (e *Engine) Fuse(textScore, vitalsScore float64) model.FusedScore {
	final := e.textWeight*textScore + e.vitalsWeight*vitalsScore
	return model.FusedScore{
		FinalScore:  final,
		RiskPercent: RiskPercent(final),
	}
}

// RiskPercent maps a fused score to an integer percentage in [0,100].
// Halves round up (math.Round rounds half away from zero); NaN maps to 0.
func RiskPercent(final float64) int {
	if math.IsNaN(final) {
		return 0
	}
	p := math.Round(final * maxRiskPercent)
	switch {
	case p < 0:
		return 0
	case p > maxRiskPercent:
		return maxRiskPercent
	}
	return int(p)
}
