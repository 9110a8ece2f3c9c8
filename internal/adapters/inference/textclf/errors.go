package textclf

import "errors"

var (
	ErrStatus       = errors.New("textclf: unexpected status")
	ErrBadResponse  = errors.New("textclf: malformed response")
	ErrUnknownLabel = errors.New("textclf: unknown candidate label")
	ErrMissingURL   = errors.New("textclf: endpoint url is required")
)
