package fusion

import "errors"

// Sentinel kinds for fusion errors.
var (
	ErrInvalidWeights = errors.New("invalid fusion weights")
)
