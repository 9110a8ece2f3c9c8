package vitals

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/okian/triage/internal/domain/model"
)

// Scaler holds standard-scaler parameters exported from training:
// z = (x - mean) / scale, per feature.
type Scaler struct {
	Features []string  `yaml:"features"`
	Mean     []float64 `yaml:"mean"`
	Scale    []float64 `yaml:"scale"`
}

// LoadScaler reads scaler parameters from a YAML file.
func LoadScaler(path string) (*Scaler, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	var s Scaler
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScaler, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the parameters cover the vitals features in
// canonical order and that no scale is zero.
func (s *Scaler) Validate() error {
	if !slices.Equal(s.Features, model.FeatureNames) {
		return fmt.Errorf("%w: features %v, want %v", ErrScaler, s.Features, model.FeatureNames)
	}
	n := len(model.FeatureNames)
	if len(s.Mean) != n || len(s.Scale) != n {
		return fmt.Errorf("%w: want %d means and scales, got %d and %d", ErrScaler, n, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("%w: zero scale for %s", ErrScaler, s.Features[i])
		}
	}
	return nil
}

// Transform standardizes one raw feature vector.
func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out
}
