package assembler

import "errors"

var (
	// ErrMissingCollaborator is returned by New when a required collaborator is nil.
	ErrMissingCollaborator = errors.New("assembler: missing collaborator")
)
