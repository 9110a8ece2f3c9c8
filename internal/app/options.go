package service

import (
	"time"

	"github.com/okian/triage/internal/adapters/repository"
	"github.com/okian/triage/internal/domain/waterfall"
	"github.com/okian/triage/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWeights sets the fusion weights. They are validated in New.
func WithWeights(text, vitals float64) Option {
	return func(s *Service) {
		s.textWeight, s.vitalsWeight = text, vitals
	}
}

// WithTolerance sets the absolute waterfall integrity tolerance.
func WithTolerance(tol float64) Option {
	return func(s *Service) {
		if tol > 0 {
			s.tolerance = tol
		}
	}
}

// WithOrder sets the waterfall presentation order.
func WithOrder(o waterfall.Order) Option {
	return func(s *Service) { s.order = o }
}

// WithDependencyTimeout bounds every collaborator call.
func WithDependencyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithReportStore enables persistence of assessments.
func WithReportStore(store repository.ReportStore) Option {
	return func(s *Service) { s.store = store }
}

// WithReloadSchedule reloads the catalog on a cron schedule (e.g. "@every 10m").
func WithReloadSchedule(spec string) Option {
	return func(s *Service) { s.reloadSchedule = spec }
}

// WithIDGenerator replaces the assessment ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
