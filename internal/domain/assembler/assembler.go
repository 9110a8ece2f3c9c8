// Package assembler turns validated sub-model outputs into a RiskReport:
// fusion, waterfall, narrative and a validated department.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/triage/internal/domain/dependency"
	"github.com/okian/triage/internal/domain/fusion"
	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
	"github.com/okian/triage/internal/domain/waterfall"
	"github.com/okian/triage/pkg/logger"
	"github.com/okian/triage/pkg/metrics"
)

// NarrativeGenerator writes a short clinical explanation.
type NarrativeGenerator interface {
	GenerateNarrative(ctx context.Context, nc model.NarrativeContext) (string, error)
}

// DepartmentRouter picks one department name from allowed.
type DepartmentRouter interface {
	RouteDepartment(ctx context.Context, rc model.RoutingContext, allowed []string) (string, error)
}

// CatalogSource publishes the current department catalog.
type CatalogSource interface {
	Current() *routing.Catalog
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithEngine sets the fusion engine. Defaults to equal weights.
func WithEngine(e *fusion.Engine) Option {
	return func(a *Assembler) {
		if e != nil {
			a.engine = e
		}
	}
}

// WithTolerance sets the absolute waterfall integrity tolerance.
func WithTolerance(tol float64) Option {
	return func(a *Assembler) {
		if tol > 0 {
			a.tolerance = tol
		}
	}
}

// WithOrder sets the waterfall presentation order.
func WithOrder(o waterfall.Order) Option {
	return func(a *Assembler) { a.order = o }
}

// WithTimeout bounds each narrative and routing call.
func WithTimeout(d time.Duration) Option {
	return func(a *Assembler) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Assembler) {
		if l != nil {
			a.logger = l
		}
	}
}

// Assembler builds reports. It holds no per-request state and is safe for
// concurrent use.
type Assembler struct {
	engine    *fusion.Engine
	narrator  NarrativeGenerator
	router    DepartmentRouter
	catalogs  CatalogSource
	tolerance float64
	order     waterfall.Order
	timeout   time.Duration
	logger    logger.Logger
}

// New returns an Assembler over the given collaborators.
func New(narrator NarrativeGenerator, router DepartmentRouter, catalogs CatalogSource, opts ...Option) (*Assembler, error) {
	if narrator == nil || router == nil || catalogs == nil {
		return nil, ErrMissingCollaborator
	}
	engine, err := fusion.New()
	if err != nil {
		return nil, err
	}
	a := &Assembler{
		engine:    engine,
		narrator:  narrator,
		router:    router,
		catalogs:  catalogs,
		tolerance: waterfall.DefaultTolerance,
		order:     waterfall.ByMagnitude,
		timeout:   15 * time.Second,
		logger:    logger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Assemble fuses the scores, builds the waterfall, then asks the narrative
// generator and the router in parallel. The router's answer must resolve
// against the current catalog. Integrity mismatches do not fail the call;
// they surface as IntegrityOK=false on the report.
func (a *Assembler) Assemble(ctx context.Context, text string, ta model.TextAssessment, va model.VitalsAssessment, vitals model.VitalsRecord) (model.RiskReport, error) {
	catalog := a.catalogs.Current()
	if catalog == nil {
		return model.RiskReport{}, routing.ErrNoCatalog
	}

	if err := ta.Validate(); errors.Is(err, model.ErrInvalidScore) {
		return model.RiskReport{}, &dependency.UnavailableError{Dependency: dependency.TextClassifier, Err: err}
	}
	if err := va.Validate(); errors.Is(err, model.ErrInvalidScore) {
		return model.RiskReport{}, &dependency.UnavailableError{Dependency: dependency.VitalsModel, Err: err}
	}

	fused := a.engine.Fuse(ta.Score, va.Score)
	metrics.RecordRiskScore(fused.RiskPercent)

	wf, err := waterfall.Build(va.BaseValue, fused.FinalScore, va.Contributions, vitals.Values(),
		waterfall.WithTolerance(a.tolerance), waterfall.WithOrder(a.order))
	if err != nil {
		return model.RiskReport{}, fmt.Errorf("build waterfall: %w", err)
	}
	if !wf.IntegrityOK {
		a.logger.Warn(ctx, "waterfall does not reconcile with prediction",
			logger.Float64("base_value", wf.BaseValue),
			logger.Float64("prediction", wf.Prediction),
			logger.Float64("residual", wf.Residual),
			logger.Float64("tolerance", a.tolerance),
		)
		metrics.RecordIntegrityWarning(math.Abs(wf.Residual))
	}

	nc := model.NarrativeContext{
		Text:          text,
		Label:         ta.Label,
		TextScore:     ta.Score,
		VitalsScore:   va.Score,
		Contributions: wf.Features,
		RiskPercent:   fused.RiskPercent,
	}
	rc := model.RoutingContext{Text: text, Label: ta.Label, RiskPercent: fused.RiskPercent}
	allowed := catalog.Names()

	var narrative, department string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out, err := dependency.Call(gctx, dependency.Narrative, a.timeout, func(c context.Context) (string, error) {
			return a.narrator.GenerateNarrative(c, nc)
		})
		if err != nil {
			return err
		}
		if strings.TrimSpace(out) == "" {
			return &dependency.UnavailableError{Dependency: dependency.Narrative, Err: model.ErrEmptyNarrative}
		}
		narrative = out
		return nil
	})
	g.Go(func() error {
		out, err := dependency.Call(gctx, dependency.Router, a.timeout, func(c context.Context) (string, error) {
			return a.router.RouteDepartment(c, rc, allowed)
		})
		if err != nil {
			return err
		}
		department = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.RiskReport{}, err
	}

	departmentID, err := routing.Resolve(department, catalog)
	if err != nil {
		a.logger.Warn(ctx, "router answered outside the catalog",
			logger.String("raw", department),
			logger.Int("catalog_size", catalog.Len()),
		)
		metrics.RecordRoutingViolation()
		return model.RiskReport{}, err
	}

	return model.RiskReport{
		RiskScore:             fused.RiskPercent,
		Shap:                  wf.Shap(),
		Explainability:        narrative,
		RecommendedDepartment: departmentID,
		IntegrityOK:           wf.IntegrityOK,
		Residual:              wf.Residual,
	}, nil
}
