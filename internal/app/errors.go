package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrNotStarted          = errors.New("service not started")
	ErrEmptyText           = errors.New("patient text is empty")
	ErrInvalidVitals       = errors.New("vitals must be finite numbers")
	ErrNoReportStore       = errors.New("report persistence is disabled")
	ErrMissingCollaborator = errors.New("missing collaborator")
)

// IsBadInput reports whether err was caused by the caller's input.
func IsBadInput(err error) bool {
	return errors.Is(err, ErrEmptyText) || errors.Is(err, ErrInvalidVitals)
}
