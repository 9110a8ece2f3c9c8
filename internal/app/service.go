// Package service wires the collaborators and the report assembler into the
// assessment entry point used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/okian/triage/internal/adapters/repository"
	"github.com/okian/triage/internal/domain/assembler"
	"github.com/okian/triage/internal/domain/dependency"
	"github.com/okian/triage/internal/domain/fusion"
	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
	"github.com/okian/triage/internal/domain/waterfall"
	"github.com/okian/triage/pkg/logger"
	"github.com/okian/triage/pkg/metrics"
)

// TextClassifier scores free-text symptoms.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (model.TextAssessment, error)
}

// VitalsInferer scores vitals and attributes the score to features.
type VitalsInferer interface {
	InferVitals(ctx context.Context, vitals model.VitalsRecord) (model.VitalsAssessment, error)
}

// Service implements the assessment API.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	classifier TextClassifier
	inferer    VitalsInferer
	narrator   assembler.NarrativeGenerator
	router     assembler.DepartmentRouter
	loader     repository.CatalogLoader
	store      repository.ReportStore

	catalog   *routing.Holder
	assembler *assembler.Assembler

	// Configuration
	textWeight     float64
	vitalsWeight   float64
	tolerance      float64
	order          waterfall.Order
	timeout        time.Duration
	reloadSchedule string
	newID          func() string

	// State
	started   bool
	scheduler *cron.Cron
	counters  counters

	logger logger.Logger
}

type counters struct {
	assessed          atomic.Int64
	failed            atomic.Int64
	integrityWarnings atomic.Int64
	routingViolations atomic.Int64
	catalogReloads    atomic.Int64
}

// New constructs a Service. All collaborators are required.
func New(classifier TextClassifier, inferer VitalsInferer, narrator assembler.NarrativeGenerator,
	router assembler.DepartmentRouter, loader repository.CatalogLoader, opts ...Option,
) (*Service, error) {
	if classifier == nil || inferer == nil || narrator == nil || router == nil || loader == nil {
		return nil, ErrMissingCollaborator
	}
	s := &Service{
		classifier:   classifier,
		inferer:      inferer,
		narrator:     narrator,
		router:       router,
		loader:       loader,
		catalog:      routing.NewHolder(nil),
		textWeight:   0.5,
		vitalsWeight: 0.5,
		tolerance:    waterfall.DefaultTolerance,
		order:        waterfall.ByMagnitude,
		timeout:      15 * time.Second,
		newID:        uuid.NewString,
		logger:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	engine, err := fusion.New(fusion.WithWeights(s.textWeight, s.vitalsWeight))
	if err != nil {
		return nil, err
	}
	s.assembler, err = assembler.New(narrator, router, s.catalog,
		assembler.WithEngine(engine),
		assembler.WithTolerance(s.tolerance),
		assembler.WithOrder(s.order),
		assembler.WithTimeout(s.timeout),
		assembler.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start loads the department catalog and starts the reload schedule.
// A catalog that cannot be loaded is fatal.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting triage service...")

	if _, err := s.reload(ctx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}

	if s.reloadSchedule != "" {
		s.scheduler = cron.New()
		_, err := s.scheduler.AddFunc(s.reloadSchedule, func() {
			rctx, cancel := context.WithTimeout(context.Background(), s.timeout)
			defer cancel()
			_, _ = s.ReloadCatalog(rctx)
		})
		if err != nil {
			s.scheduler = nil
			return fmt.Errorf("catalog reload schedule %q: %w", s.reloadSchedule, err)
		}
		s.scheduler.Start()
	}

	s.started = true
	s.logger.Info(ctx, "triage service started",
		logger.Int("departments", s.catalog.Current().Len()),
		logger.String("reload_schedule", s.reloadSchedule),
		logger.Duration("dependency_timeout", s.timeout),
	)
	return nil
}

// Stop halts the reload schedule and waits for a running reload.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping triage service...")
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
		s.scheduler = nil
	}
	s.started = false
	s.logger.Info(context.Background(), "triage service stopped")
}

// ReloadCatalog builds a fresh catalog and publishes it. On failure the
// current catalog stays in place.
func (s *Service) ReloadCatalog(ctx context.Context) (int, error) {
	return s.reload(ctx)
}

func (s *Service) reload(ctx context.Context) (int, error) {
	c, err := dependency.Call(ctx, dependency.Catalog, s.timeout, s.loader.LoadCatalog)
	if err == nil && c.Len() == 0 {
		err = fmt.Errorf("%w: no departments", routing.ErrInvalidCatalog)
	}
	if err != nil {
		metrics.RecordCatalogReload("error")
		s.logger.Error(ctx, "catalog reload failed, keeping current catalog", logger.Error(err))
		return 0, err
	}
	s.catalog.Swap(c)
	s.counters.catalogReloads.Add(1)
	metrics.RecordCatalogReload("ok")
	metrics.UpdateCatalogDepartments(c.Len())
	s.logger.Info(ctx, "department catalog published", logger.Int("departments", c.Len()))
	return c.Len(), nil
}

// Departments returns the published catalog entries.
func (s *Service) Departments() []routing.Department {
	c := s.catalog.Current()
	if c == nil {
		return nil
	}
	return c.Departments()
}

// Assess runs one full assessment: both sub-models concurrently, input
// validation, then report assembly. The report gets a fresh assessment ID
// and is persisted when a store is configured.
func (s *Service) Assess(ctx context.Context, text string, vitals model.VitalsRecord) (model.RiskReport, error) {
	start := time.Now()
	report, err := s.assess(ctx, text, vitals)

	outcome := Outcome(err)
	if err == nil && !report.IntegrityOK {
		outcome = "integrity_warning"
	}
	metrics.RecordAssessment(outcome, float64(time.Since(start).Milliseconds()))
	switch {
	case err != nil:
		s.counters.failed.Add(1)
		if errors.Is(err, routing.ErrRoutingValidation) {
			s.counters.routingViolations.Add(1)
		}
		s.logger.Warn(ctx, "assessment failed",
			logger.String("outcome", outcome),
			logger.Error(err),
		)
	default:
		s.counters.assessed.Add(1)
		if !report.IntegrityOK {
			s.counters.integrityWarnings.Add(1)
		}
		s.logger.Info(ctx, "assessment completed",
			logger.String("assessment_id", report.AssessmentID),
			logger.Int("risk_score", report.RiskScore),
			logger.String("department", report.RecommendedDepartment),
			logger.Bool("integrity_ok", report.IntegrityOK),
			logger.Duration("latency", time.Since(start)),
		)
	}
	return report, err
}

func (s *Service) assess(ctx context.Context, text string, vitals model.VitalsRecord) (model.RiskReport, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return model.RiskReport{}, ErrNotStarted
	}
	if strings.TrimSpace(text) == "" {
		return model.RiskReport{}, ErrEmptyText
	}
	for i, v := range vitals.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.RiskReport{}, fmt.Errorf("%w: %s", ErrInvalidVitals, model.FeatureNames[i])
		}
	}

	var (
		ta model.TextAssessment
		va model.VitalsAssessment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ta, err = dependency.Call(gctx, dependency.TextClassifier, s.timeout, func(c context.Context) (model.TextAssessment, error) {
			return s.classifier.ClassifyText(c, text)
		})
		if err != nil {
			return err
		}
		if err := ta.Validate(); err != nil {
			return &dependency.UnavailableError{Dependency: dependency.TextClassifier, Err: err}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		va, err = dependency.Call(gctx, dependency.VitalsModel, s.timeout, func(c context.Context) (model.VitalsAssessment, error) {
			return s.inferer.InferVitals(c, vitals)
		})
		if err != nil {
			return err
		}
		if err := va.Validate(); err != nil {
			if errors.Is(err, model.ErrInvalidScore) {
				return &dependency.UnavailableError{Dependency: dependency.VitalsModel, Err: err}
			}
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.RiskReport{}, err
	}

	report, err := s.assembler.Assemble(ctx, text, ta, va, vitals)
	if err != nil {
		return model.RiskReport{}, err
	}
	report.AssessmentID = s.newID()

	if s.store != nil {
		if err := s.store.Save(ctx, report); err != nil {
			// The caller still gets the report; only history is lost.
			s.logger.Error(ctx, "persisting report failed",
				logger.String("assessment_id", report.AssessmentID),
				logger.Error(err),
			)
		}
	}
	return report, nil
}

// GetReport returns a persisted report.
func (s *Service) GetReport(ctx context.Context, id string) (repository.StoredReport, error) {
	if s.store == nil {
		return repository.StoredReport{}, ErrNoReportStore
	}
	return s.store.Get(ctx, id)
}

// RecentReports returns up to limit persisted reports, newest first.
func (s *Service) RecentReports(ctx context.Context, limit int) ([]repository.StoredReport, error) {
	if s.store == nil {
		return nil, ErrNoReportStore
	}
	return s.store.Recent(ctx, limit)
}

// Outcome names the result of an assessment for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsBadInput(err):
		return "bad_input"
	case errors.Is(err, model.ErrDataIntegrity):
		return "data_integrity"
	case errors.Is(err, routing.ErrRoutingValidation):
		return "routing_validation"
	case errors.Is(err, dependency.ErrTimeout):
		return "timeout"
	case errors.Is(err, dependency.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNotStarted):
		return "not_started"
	default:
		return "error"
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":            s.started,
		"assessed":           s.counters.assessed.Load(),
		"failed":             s.counters.failed.Load(),
		"integrity_warnings": s.counters.integrityWarnings.Load(),
		"routing_violations": s.counters.routingViolations.Load(),
		"catalog_reloads":    s.counters.catalogReloads.Load(),
		"persistence":        s.store != nil,
	}
	if c := s.catalog.Current(); c != nil {
		stats["departments"] = c.Len()
	}
	return stats
}
