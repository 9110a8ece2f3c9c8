package llm

import "errors"

var (
	ErrUnknownProvider = errors.New("llm: unknown provider")
	ErrMissingAPIKey   = errors.New("llm: api key is required")
	ErrEmptyResponse   = errors.New("llm: no text in response")
	ErrAPI             = errors.New("llm: api error")
)
