package repository

import "github.com/okian/triage/pkg/logger"

// Option applies a configuration option to the SQLiteStore.
type Option func(*SQLiteStore)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMaxRecent caps the limit accepted by Recent.
func WithMaxRecent(n int) Option {
	return func(s *SQLiteStore) {
		if n > 0 {
			s.maxRecent = n
		}
	}
}
