// Package dependency classifies failures of external collaborators (model
// inference and language-model calls) into timeout and unavailable kinds.
package dependency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/triage/pkg/metrics"
)

// Collaborator names used in errors, logs and metrics.
const (
	TextClassifier = "text_classifier"
	VitalsModel    = "vitals_model"
	Narrative      = "narrative"
	Router         = "router"
	Catalog        = "catalog"
)

// Sentinel kinds for dependency errors.
var (
	ErrTimeout     = errors.New("dependency timeout")
	ErrUnavailable = errors.New("dependency unavailable")
)

// TimeoutError reports that a collaborator did not answer in time.
type TimeoutError struct {
	Dependency string
	Err        error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrTimeout, e.Dependency, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TimeoutError) Unwrap() error { return e.Err }

// Is matches ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// UnavailableError reports any other collaborator failure.
type UnavailableError struct {
	Dependency string
	Err        error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUnavailable, e.Dependency, e.Err)
}

// Unwrap returns the underlying cause.
func (e *UnavailableError) Unwrap() error { return e.Err }

// Is matches ErrUnavailable.
func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Classify wraps err from collaborator dep. Deadline errors become a
// *TimeoutError, everything else a *UnavailableError. Errors that are
// already classified are returned unchanged. Nil stays nil.
func Classify(dep string, err error) error {
	if err == nil {
		return nil
	}
	var te *TimeoutError
	var ue *UnavailableError
	if errors.As(err, &te) || errors.As(err, &ue) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Dependency: dep, Err: err}
	}
	return &UnavailableError{Dependency: dep, Err: err}
}

// Kind returns "timeout", "unavailable" or "" for err.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return ""
	}
}

type result[T any] struct {
	v   T
	err error
}

// Call runs fn under a timeout derived from ctx and classifies its error.
// A non-positive timeout leaves ctx unchanged. Call returns when ctx is done
// even if fn ignores cancellation; a value fn produces after that is dropped.
// Latency and failures are recorded per dependency.
func Call[T any](ctx context.Context, dep string, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	done := make(chan result[T], 1)
	go func() {
		v, err := fn(ctx)
		done <- result[T]{v: v, err: err}
	}()

	var (
		v   T
		err error
	)
	select {
	case r := <-done:
		v, err = r.v, r.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	metrics.RecordDependencyLatency(dep, float64(time.Since(start).Milliseconds()))
	if err != nil {
		var zero T
		err = Classify(dep, err)
		metrics.RecordDependencyError(dep, Kind(err))
		return zero, err
	}
	return v, nil
}
