// Package vitals scores a VitalsRecord with an ONNX regressor and explains
// the prediction with exact baseline Shapley values.
package vitals

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/pkg/logger"
)

// Option configures an Inferer.
type Option func(*Inferer)

// WithLibraryPath sets the onnxruntime shared library path.
func WithLibraryPath(path string) Option {
	return func(i *Inferer) { i.libPath = path }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(i *Inferer) {
		if l != nil {
			i.logger = l
		}
	}
}

// Inferer produces VitalsAssessments. The baseline is the training mean,
// i.e. zero in standardized space.
type Inferer struct {
	scaler  *Scaler
	predict PredictFunc // standardized rows
	close   func() error
	libPath string
	logger  logger.Logger
}

// New loads the scaler and the ONNX model.
func New(modelPath, scalerPath string, opts ...Option) (*Inferer, error) {
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	inf := &Inferer{scaler: scaler, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(inf)
	}
	sess, err := newONNXSession(modelPath, inf.libPath, len(model.FeatureNames))
	if err != nil {
		return nil, err
	}
	inf.predict = sess.predict
	inf.close = sess.close
	inf.logger.Info(context.Background(), "vitals model loaded",
		logger.String("model", modelPath),
		logger.String("input", sess.inputName),
		logger.String("output", sess.outputName),
	)
	return inf, nil
}

// NewWithPredictor builds an Inferer over any regressor that accepts
// standardized rows.
func NewWithPredictor(scaler *Scaler, predict PredictFunc, opts ...Option) (*Inferer, error) {
	if scaler == nil || predict == nil {
		return nil, fmt.Errorf("%w: scaler and predictor are required", ErrModel)
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}
	inf := &Inferer{scaler: scaler, predict: predict, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(inf)
	}
	return inf, nil
}

// InferVitals returns the clamped regressor score, the baseline prediction
// and one contribution per vitals feature. The contributions reconcile with
// the unclamped prediction.
func (i *Inferer) InferVitals(ctx context.Context, rec model.VitalsRecord) (model.VitalsAssessment, error) {
	if err := ctx.Err(); err != nil {
		return model.VitalsAssessment{}, err
	}
	start := time.Now()

	raw := func(rows [][]float64) ([]float64, error) {
		scaled := make([][]float64, len(rows))
		for k, r := range rows {
			scaled[k] = i.scaler.Transform(r)
		}
		return i.predict(scaled)
	}
	exp, err := Explain(raw, rec.Vector(), i.scaler.Mean)
	if err != nil {
		return model.VitalsAssessment{}, err
	}

	attr := make(model.Attribution, len(model.FeatureNames))
	for k, name := range model.FeatureNames {
		attr[k] = model.Contribution{Feature: name, Value: exp.Values[k]}
	}
	score := min(max(exp.Prediction, 0), 1)

	va, err := model.NewVitalsAssessment(score, exp.Base, attr)
	if err != nil {
		return model.VitalsAssessment{}, err
	}
	i.logger.Debug(ctx, "vitals inferred",
		logger.Float64("score", score),
		logger.Float64("base_value", exp.Base),
		logger.Duration("latency", time.Since(start)),
	)
	return va, nil
}

// Close releases the model session.
func (i *Inferer) Close() error {
	if i.close == nil {
		return nil
	}
	err := i.close()
	i.close = nil
	return err
}
