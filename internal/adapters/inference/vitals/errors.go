package vitals

import "errors"

var (
	ErrScaler       = errors.New("vitals: invalid scaler parameters")
	ErrModel        = errors.New("vitals: invalid model")
	ErrPrediction   = errors.New("vitals: prediction failed")
	ErrFeatureCount = errors.New("vitals: feature count mismatch")
)
