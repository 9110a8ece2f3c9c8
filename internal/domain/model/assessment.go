package model

import (
	"fmt"
	"math"
	"sort"
)

// Severity is the top label produced by the text classifier.
type Severity string

const (
	SeverityRoutine  Severity = "routine"
	SeverityUrgent   Severity = "urgent"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severity labels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityRoutine, SeverityUrgent, SeverityCritical:
		return true
	default:
		return false
	}
}

// TextAssessment is the text classifier's output for one request.
type TextAssessment struct {
	Score float64  `json:"score"`
	Label Severity `json:"label"`
}

// Validate checks the score range and label.
func (t TextAssessment) Validate() error {
	if math.IsNaN(t.Score) || t.Score < 0 || t.Score > 1 {
		return fmt.Errorf("%w: text score %v outside [0,1]", ErrInvalidScore, t.Score)
	}
	if !t.Label.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, t.Label)
	}
	return nil
}

// Contribution is a signed attribution for a single feature.
type Contribution struct {
	Feature string  `json:"feature"`
	Value   float64 `json:"value"`
}

// Attribution is an ordered set of per-feature contributions. Order is the
// attribution engine's iteration order and is used to break sort ties.
type Attribution []Contribution

// Map returns the contributions keyed by feature name.
func (a Attribution) Map() map[string]float64 {
	out := make(map[string]float64, len(a))
	for _, c := range a {
		out[c.Feature] = c.Value
	}
	return out
}

// Sum returns the total of all contributions.
func (a Attribution) Sum() float64 {
	var total float64
	for _, c := range a {
		total += c.Value
	}
	return total
}

// CheckKeys verifies that the attribution names exactly the given keys, each
// once. It returns a *DataIntegrityError describing any mismatch.
func (a Attribution) CheckKeys(keys []string) error {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	seen := make(map[string]bool, len(a))
	var extra, dup []string
	for _, c := range a {
		if seen[c.Feature] {
			dup = append(dup, c.Feature)
			continue
		}
		seen[c.Feature] = true
		if !want[c.Feature] {
			extra = append(extra, c.Feature)
		}
	}
	var missing []string
	for k := range want {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 && len(extra) == 0 && len(dup) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &DataIntegrityError{Missing: missing, Extra: extra, Duplicate: dup}
}

// VitalsAssessment is the vitals regressor's output with attributions.
type VitalsAssessment struct {
	Score         float64     `json:"score"`
	BaseValue     float64     `json:"base_value"`
	Contributions Attribution `json:"contributions"`
}

// NewVitalsAssessment builds a VitalsAssessment whose contribution keys are
// exactly the VitalsRecord feature names and whose numbers are all finite.
func NewVitalsAssessment(score, baseValue float64, contributions Attribution) (VitalsAssessment, error) {
	cp := make(Attribution, len(contributions))
	copy(cp, contributions)
	va := VitalsAssessment{Score: score, BaseValue: baseValue, Contributions: cp}
	if err := va.Validate(); err != nil {
		return VitalsAssessment{}, err
	}
	return va, nil
}

// Validate re-checks the attribution key set and rejects non-finite score,
// base value or contributions, for values built by literal.
func (v VitalsAssessment) Validate() error {
	if err := v.Contributions.CheckKeys(FeatureNames); err != nil {
		return err
	}
	if !finite(v.Score) {
		return fmt.Errorf("%w: vitals score %v", ErrInvalidScore, v.Score)
	}
	if !finite(v.BaseValue) {
		return fmt.Errorf("%w: vitals base value %v", ErrInvalidScore, v.BaseValue)
	}
	for _, c := range v.Contributions {
		if !finite(c.Value) {
			return fmt.Errorf("%w: contribution %s=%v", ErrInvalidScore, c.Feature, c.Value)
		}
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
