package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("report not found")
	ErrInvalidLimit = errors.New("invalid report limit")
	ErrMissingID    = errors.New("report has no assessment id")
	ErrCatalogFile  = errors.New("malformed catalog file")
)
