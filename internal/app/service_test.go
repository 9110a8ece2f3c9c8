package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/triage/internal/adapters/repository"
	service "github.com/okian/triage/internal/app"
	"github.com/okian/triage/internal/domain/dependency"
	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClassifier struct {
	ta   model.TextAssessment
	err  error
	wait time.Duration
}

func (f *fakeClassifier) ClassifyText(ctx context.Context, _ string) (model.TextAssessment, error) {
	if f.wait > 0 {
		select {
		case <-ctx.Done():
			return model.TextAssessment{}, ctx.Err()
		case <-time.After(f.wait):
		}
	}
	return f.ta, f.err
}

type fakeInferer struct {
	va  model.VitalsAssessment
	err error
}

func (f *fakeInferer) InferVitals(context.Context, model.VitalsRecord) (model.VitalsAssessment, error) {
	return f.va, f.err
}

type fakeNarrator struct{ text string }

func (f *fakeNarrator) GenerateNarrative(context.Context, model.NarrativeContext) (string, error) {
	return f.text, nil
}

type fakeRouter struct{ answer string }

func (f *fakeRouter) RouteDepartment(context.Context, model.RoutingContext, []string) (string, error) {
	return f.answer, nil
}

type fakeLoader struct {
	mu    sync.Mutex
	deps  []routing.Department
	err   error
	loads atomic.Int32
}

func (f *fakeLoader) LoadCatalog(context.Context) (*routing.Catalog, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return routing.NewCatalog(f.deps)
}

func (f *fakeLoader) set(deps []routing.Department, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deps, f.err = deps, err
}

type memStore struct {
	mu      sync.Mutex
	reports map[string]model.RiskReport
}

func (m *memStore) Save(_ context.Context, r model.RiskReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.AssessmentID] = r
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (repository.StoredReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[id]
	if !ok {
		return repository.StoredReport{}, repository.ErrNotFound
	}
	return repository.StoredReport{Report: r, CreatedAt: time.Now()}, nil
}

func (m *memStore) Recent(_ context.Context, limit int) ([]repository.StoredReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.StoredReport
	for _, r := range m.reports {
		if len(out) == limit {
			break
		}
		out = append(out, repository.StoredReport{Report: r})
	}
	return out, nil
}

func departments() []routing.Department {
	return []routing.Department{
		{ID: "dep-card", Name: "Cardiology"},
		{ID: "dep-neuro", Name: "Neurology"},
	}
}

// vitalsAssessment reconciles with text score 0.8 (fused 0.6).
func vitalsAssessment() model.VitalsAssessment {
	return model.VitalsAssessment{
		Score:     0.4,
		BaseValue: 0.35,
		Contributions: model.Attribution{
			{Feature: model.FeatureAge, Value: 0.05},
			{Feature: model.FeatureSex, Value: 0.01},
			{Feature: model.FeatureHeartRate, Value: 0.12},
			{Feature: model.FeatureSystolicBP, Value: 0.06},
			{Feature: model.FeatureDiastolicBP, Value: 0.02},
			{Feature: model.FeatureTemperature, Value: -0.01},
		},
	}
}

func vitals() model.VitalsRecord {
	return model.VitalsRecord{Age: 64, Sex: 0, HeartRate: 121, SystolicBP: 158, DiastolicBP: 92, Temperature: 37.4}
}

type fixture struct {
	classifier *fakeClassifier
	inferer    *fakeInferer
	router     *fakeRouter
	loader     *fakeLoader
	store      *memStore
}

func newFixture() *fixture {
	return &fixture{
		classifier: &fakeClassifier{ta: model.TextAssessment{Score: 0.8, Label: model.SeverityCritical}},
		inferer:    &fakeInferer{va: vitalsAssessment()},
		router:     &fakeRouter{answer: "Cardiology"},
		loader:     &fakeLoader{deps: departments()},
		store:      &memStore{reports: map[string]model.RiskReport{}},
	}
}

func (f *fixture) service(opts ...service.Option) *service.Service {
	opts = append([]service.Option{
		service.WithReportStore(f.store),
		service.WithIDGenerator(func() string { return "fixed-id" }),
		service.WithDependencyTimeout(time.Second),
	}, opts...)
	svc, err := service.New(f.classifier, f.inferer, &fakeNarrator{text: "Likely acute coronary syndrome."}, f.router, f.loader, opts...)
	if err != nil {
		panic(err)
	}
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given missing collaborators", t, func() {
		_, err := service.New(nil, &fakeInferer{}, &fakeNarrator{}, &fakeRouter{}, &fakeLoader{})
		So(errors.Is(err, service.ErrMissingCollaborator), ShouldBeTrue)
	})

	Convey("Given weights that do not sum to one", t, func() {
		f := newFixture()
		_, err := service.New(f.classifier, f.inferer, &fakeNarrator{}, f.router, f.loader, service.WithWeights(0.7, 0.7))
		So(err, ShouldNotBeNil)
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		f := newFixture()
		svc := f.service()
		defer svc.Stop()

		Convey("When assessing before start", func() {
			_, err := svc.Assess(context.Background(), "pain", vitals())
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})

		Convey("When starting the service", func() {
			err := svc.Start(context.Background())

			Convey("Then the catalog is published", func() {
				So(err, ShouldBeNil)
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["departments"], ShouldEqual, 2)
				So(svc.Departments(), ShouldHaveLength, 2)
			})

			Convey("And stopping marks it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})

		Convey("When the catalog cannot be loaded", func() {
			f.loader.set(nil, errors.New("file missing"))
			err := svc.Start(context.Background())

			Convey("Then start fails", func() {
				So(err, ShouldNotBeNil)
				So(svc.GetStats()["started"], ShouldEqual, false)
			})
		})
	})
}

func TestService_Assess(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture()
		svc := f.service()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		ctx := context.Background()

		Convey("When assessing a valid request", func() {
			report, err := svc.Assess(ctx, "crushing chest pain", vitals())

			Convey("Then a persisted report is returned", func() {
				So(err, ShouldBeNil)
				So(report.AssessmentID, ShouldEqual, "fixed-id")
				So(report.RiskScore, ShouldEqual, 60)
				So(report.RecommendedDepartment, ShouldEqual, "dep-card")
				So(report.IntegrityOK, ShouldBeTrue)
				So(report.Shap.Features, ShouldHaveLength, 6)

				stored, err := svc.GetReport(ctx, "fixed-id")
				So(err, ShouldBeNil)
				So(stored.Report.RiskScore, ShouldEqual, 60)
				recent, err := svc.RecentReports(ctx, 10)
				So(err, ShouldBeNil)
				So(recent, ShouldHaveLength, 1)
				So(svc.GetStats()["assessed"], ShouldEqual, int64(1))
			})
		})

		Convey("When the text is blank", func() {
			_, err := svc.Assess(ctx, "  \n", vitals())
			So(errors.Is(err, service.ErrEmptyText), ShouldBeTrue)
			So(service.IsBadInput(err), ShouldBeTrue)
		})

		Convey("When a vital is NaN", func() {
			v := vitals()
			v.HeartRate = math.NaN()
			_, err := svc.Assess(ctx, "pain", v)
			So(errors.Is(err, service.ErrInvalidVitals), ShouldBeTrue)
		})

		Convey("When the classifier returns an out-of-range score", func() {
			f.classifier.ta.Score = 1.4
			_, err := svc.Assess(ctx, "pain", vitals())

			So(errors.Is(err, model.ErrInvalidScore), ShouldBeTrue)
			So(errors.Is(err, dependency.ErrUnavailable), ShouldBeTrue)
		})

		Convey("When the vitals attribution lacks a feature", func() {
			f.inferer.va.Contributions = f.inferer.va.Contributions[1:]
			_, err := svc.Assess(ctx, "pain", vitals())

			So(errors.Is(err, model.ErrDataIntegrity), ShouldBeTrue)
			So(service.Outcome(err), ShouldEqual, "data_integrity")
		})

		Convey("When the router picks an unknown department", func() {
			f.router.answer = "Podiatry"
			_, err := svc.Assess(ctx, "pain", vitals())

			So(errors.Is(err, routing.ErrRoutingValidation), ShouldBeTrue)
			So(svc.GetStats()["routing_violations"], ShouldEqual, int64(1))
		})

		Convey("When the classifier is slower than the timeout", func() {
			f.classifier.wait = time.Second
			slow := f.service(service.WithDependencyTimeout(20 * time.Millisecond))
			So(slow.Start(ctx), ShouldBeNil)
			defer slow.Stop()

			_, err := slow.Assess(ctx, "pain", vitals())

			Convey("Then it fails with a classifier timeout", func() {
				var te *dependency.TimeoutError
				So(errors.As(err, &te), ShouldBeTrue)
				So(te.Dependency, ShouldEqual, dependency.TextClassifier)
				So(service.Outcome(err), ShouldEqual, "timeout")
			})
		})

		Convey("When the vitals model returns a NaN score", func() {
			f.inferer.va.Score = math.NaN()
			_, err := svc.Assess(ctx, "crushing chest pain", vitals())

			Convey("Then it fails as an unavailable vitals model", func() {
				var ue *dependency.UnavailableError
				So(errors.As(err, &ue), ShouldBeTrue)
				So(ue.Dependency, ShouldEqual, dependency.VitalsModel)
				So(errors.Is(err, model.ErrInvalidScore), ShouldBeTrue)
				So(service.Outcome(err), ShouldEqual, "unavailable")
				_, gerr := svc.GetReport(ctx, "fixed-id")
				So(gerr, ShouldNotBeNil)
			})
		})

		Convey("When the vitals model fails", func() {
			f.inferer.err = errors.New("session closed")
			_, err := svc.Assess(ctx, "pain", vitals())

			So(service.Outcome(err), ShouldEqual, "unavailable")
		})

		Convey("When the vitals score diverges from the fused score", func() {
			f.classifier.ta.Score = 0.2
			report, err := svc.Assess(ctx, "pain", vitals())

			Convey("Then the report carries the integrity flag", func() {
				So(err, ShouldBeNil)
				So(report.IntegrityOK, ShouldBeFalse)
				So(svc.GetStats()["integrity_warnings"], ShouldEqual, int64(1))
			})
		})
	})
}

func TestService_ReloadCatalog(t *testing.T) {
	Convey("Given a started service", t, func() {
		f := newFixture()
		svc := f.service()
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("When the source gains a department", func() {
			f.loader.set(append(departments(), routing.Department{ID: "dep-derm", Name: "Dermatology"}), nil)
			n, err := svc.ReloadCatalog(context.Background())

			Convey("Then the new catalog is used for routing", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
				f.router.answer = "dermatology"
				report, err := svc.Assess(context.Background(), "rash", vitals())
				So(err, ShouldBeNil)
				So(report.RecommendedDepartment, ShouldEqual, "dep-derm")
			})
		})

		Convey("When the reload fails", func() {
			f.loader.set(nil, errors.New("db locked"))
			_, err := svc.ReloadCatalog(context.Background())

			Convey("Then the previous catalog is kept", func() {
				So(err, ShouldNotBeNil)
				So(svc.Departments(), ShouldHaveLength, 2)
			})
		})

		Convey("When the source is empty", func() {
			f.loader.set([]routing.Department{}, nil)
			_, err := svc.ReloadCatalog(context.Background())

			So(errors.Is(err, routing.ErrInvalidCatalog), ShouldBeTrue)
			So(svc.Departments(), ShouldHaveLength, 2)
		})
	})

	Convey("Given a reload schedule", t, func() {
		f := newFixture()
		svc := f.service(service.WithReloadSchedule("@every 1s"))
		So(svc.Start(context.Background()), ShouldBeNil)

		Convey("Then the catalog is reloaded in the background", func() {
			deadline := time.Now().Add(3 * time.Second)
			for f.loader.loads.Load() < 2 && time.Now().Before(deadline) {
				time.Sleep(50 * time.Millisecond)
			}
			svc.Stop()
			So(f.loader.loads.Load(), ShouldBeGreaterThanOrEqualTo, 2)
		})
	})

	Convey("Given an invalid reload schedule", t, func() {
		f := newFixture()
		svc := f.service(service.WithReloadSchedule("every now and then"))
		So(svc.Start(context.Background()), ShouldNotBeNil)
	})
}
