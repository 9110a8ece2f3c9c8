// Package waterfall decomposes a prediction into a base value plus ordered
// per-feature contributions and checks that the decomposition reconciles.
package waterfall

import (
	"math"
	"sort"

	"github.com/okian/triage/internal/domain/model"
)

// Step labels for the fixed first and last bars.
const (
	LabelBase  = "Base Value"
	LabelFinal = "Final Prediction"
)

// DefaultTolerance is the absolute reconciliation tolerance.
const DefaultTolerance = 1e-3

// Order selects how features are ranked for presentation.
type Order int

const (
	// ByMagnitude ranks by |contribution| descending. It is the default; use
	// BySigned for a strictly signed ordering.
	ByMagnitude Order = iota
	// BySigned ranks by signed contribution descending, so positive drivers
	// come first and protective factors last.
	BySigned
)

// Option applies a configuration option to a build.
type Option func(*options)

type options struct {
	tolerance float64
	order     Order
}

// WithOrder selects the presentation order of features.
func WithOrder(order Order) Option {
	return func(o *options) {
		o.order = order
	}
}

// WithTolerance overrides the absolute reconciliation tolerance.
func WithTolerance(tol float64) Option {
	return func(o *options) {
		if tol > 0 {
			o.tolerance = tol
		}
	}
}

// Waterfall is the result of Build.
type Waterfall struct {
	BaseValue  float64
	Prediction float64
	Features   []model.Feature       // presentation order, see Order
	Steps      []model.WaterfallStep // base, one per feature, final

	// IntegrityOK is false when the running total after all features is
	// further than the tolerance from Prediction. Non-fatal.
	IntegrityOK bool
	// Residual is running total minus prediction.
	Residual float64
}

// Shap converts the waterfall to its report shape.
func (w Waterfall) Shap() model.Shap {
	return model.Shap{
		BaseValue:  w.BaseValue,
		Prediction: w.Prediction,
		Features:   w.Features,
		Steps:      w.Steps,
	}
}

// Build constructs the waterfall. contributions and featureValues must share
// exactly the same key set; otherwise a *model.DataIntegrityError is returned
// and no waterfall is produced.
func Build(baseValue, prediction float64, contributions model.Attribution, featureValues map[string]float64, opts ...Option) (Waterfall, error) {
	o := options{tolerance: DefaultTolerance, order: ByMagnitude}
	for _, opt := range opts {
		opt(&o)
	}

	keys := make([]string, 0, len(featureValues))
	for k := range featureValues {
		keys = append(keys, k)
	}
	if err := contributions.CheckKeys(keys); err != nil {
		return Waterfall{}, err
	}

	features := make([]model.Feature, len(contributions))
	for i, c := range contributions {
		features[i] = model.Feature{
			Name:         c.Feature,
			Value:        featureValues[c.Feature],
			Contribution: c.Value,
		}
	}
	// Presentation order only; ties keep the attribution order.
	sort.SliceStable(features, func(i, j int) bool {
		if o.order == BySigned {
			return features[i].Contribution > features[j].Contribution
		}
		return math.Abs(features[i].Contribution) > math.Abs(features[j].Contribution)
	})

	steps := make([]model.WaterfallStep, 0, len(features)+2)
	steps = append(steps, model.WaterfallStep{Label: LabelBase, Start: 0, End: baseValue})
	running := baseValue
	for _, f := range features {
		end := running + f.Contribution
		steps = append(steps, model.WaterfallStep{Label: f.Name, Start: running, End: end})
		running = end
	}
	steps = append(steps, model.WaterfallStep{Label: LabelFinal, Start: 0, End: prediction})

	residual := running - prediction
	return Waterfall{
		BaseValue:   baseValue,
		Prediction:  prediction,
		Features:    features,
		Steps:       steps,
		IntegrityOK: math.Abs(residual) <= o.tolerance,
		Residual:    residual,
	}, nil
}
