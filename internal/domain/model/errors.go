package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrDataIntegrity  = errors.New("data integrity violation")
	ErrInvalidScore   = errors.New("invalid score")
	ErrInvalidLabel   = errors.New("invalid severity label")
	ErrEmptyNarrative = errors.New("empty narrative")
)

// DataIntegrityError reports a key-set mismatch between an attribution and
// the feature values it is supposed to explain.
type DataIntegrityError struct {
	Missing   []string // keys expected but absent
	Extra     []string // keys present but not expected
	Duplicate []string // keys seen more than once
}

func (e *DataIntegrityError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing="+strings.Join(e.Missing, ","))
	}
	if len(e.Extra) > 0 {
		parts = append(parts, "extra="+strings.Join(e.Extra, ","))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, "duplicate="+strings.Join(e.Duplicate, ","))
	}
	return fmt.Sprintf("%s: feature key mismatch (%s)", ErrDataIntegrity, strings.Join(parts, " "))
}

// Unwrap exposes the sentinel kind.
func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }
