package routing

import (
	"errors"
	"fmt"
)

// Sentinel kinds for routing errors.
var (
	ErrRoutingValidation = errors.New("routing validation failed")
	ErrInvalidCatalog    = errors.New("invalid department catalog")
	ErrNoCatalog         = errors.New("department catalog not loaded")
)

// RoutingValidationError is returned when the router's answer is not in the
// catalog. Raw is the unnormalized text the router returned.
type RoutingValidationError struct {
	Raw string
}

func (e *RoutingValidationError) Error() string {
	return fmt.Sprintf("%s: department %q is not in the catalog", ErrRoutingValidation, e.Raw)
}

// Unwrap exposes the sentinel kind.
func (e *RoutingValidationError) Unwrap() error { return ErrRoutingValidation }
