package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/triage/internal/adapters/repository"
	service "github.com/okian/triage/internal/app"
	"github.com/okian/triage/internal/config"
	"github.com/okian/triage/internal/domain/model"
	"github.com/okian/triage/internal/domain/routing"
	"github.com/okian/triage/pkg/logger"
)

type stubCollaborators struct{}

func (stubCollaborators) ClassifyText(context.Context, string) (model.TextAssessment, error) {
	return model.TextAssessment{}, nil
}

func (stubCollaborators) InferVitals(context.Context, model.VitalsRecord) (model.VitalsAssessment, error) {
	return model.VitalsAssessment{}, nil
}

func (stubCollaborators) GenerateNarrative(context.Context, model.NarrativeContext) (string, error) {
	return "stable", nil
}

func (stubCollaborators) RouteDepartment(context.Context, model.RoutingContext, []string) (string, error) {
	return "Cardiology", nil
}

func (stubCollaborators) LoadCatalog(context.Context) (*routing.Catalog, error) {
	return routing.NewCatalog([]routing.Department{{ID: "D1", Name: "Cardiology"}})
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "departments.csv")
	content := "name,department_id\nCardiology,D1\nNeurology,D2\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewCatalogLoader(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		ctx := context.Background()
		cfg := config.New()
		cfg.CatalogPath = writeCSV(t)

		convey.Convey("When the source is csv", func() {
			loader, err := newCatalogLoader(ctx, cfg, nil)

			convey.Convey("Then the csv catalog is used", func() {
				convey.So(err, convey.ShouldBeNil)
				_, ok := loader.(*repository.CSVCatalog)
				convey.So(ok, convey.ShouldBeTrue)

				c, err := loader.LoadCatalog(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Len(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the source is sqlite and the table is empty", func() {
			cfg.CatalogSource = config.CatalogSourceSQLite
			cfg.DBPath = filepath.Join(t.TempDir(), "triage.db")
			store, err := openStore(cfg, logger.NewNop())
			convey.So(err, convey.ShouldBeNil)
			defer store.Close()

			loader, err := newCatalogLoader(ctx, cfg, store)

			convey.Convey("Then the table is seeded from the csv file", func() {
				convey.So(err, convey.ShouldBeNil)
				n, err := store.CountDepartments(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(n, convey.ShouldEqual, 2)

				c, err := loader.LoadCatalog(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Len(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the source is sqlite without a store", func() {
			cfg.CatalogSource = config.CatalogSourceSQLite
			_, err := newCatalogLoader(ctx, cfg, nil)

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestOpenStore(t *testing.T) {
	convey.Convey("Given a config without db_path", t, func() {
		store, err := openStore(config.New(), logger.NewNop())

		convey.Convey("Then persistence is disabled", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(store, convey.ShouldBeNil)
		})
	})
}

func TestNewLLMClient(t *testing.T) {
	convey.Convey("Given the llm settings", t, func() {
		cfg := config.New()

		convey.Convey("When the provider key is missing", func() {
			_, err := newLLMClient(cfg, logger.NewNop())

			convey.Convey("Then construction fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the anthropic key is set", func() {
			cfg.LLMProvider = config.ProviderAnthropic
			cfg.AnthropicAPIKey = "sk-test"
			client, err := newLLMClient(cfg, logger.NewNop())

			convey.Convey("Then a client is built", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(client, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("Then no report store option is added without a store", func() {
			convey.So(serviceOptions(cfg, nil, logger.NewNop()), convey.ShouldHaveLength, 6)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given a handler over a started service", t, func() {
		ctx := context.Background()
		stub := stubCollaborators{}
		svc, err := service.New(stub, stub, stub, stub, stub, serviceOptions(config.New(), nil, logger.NewNop())...)
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		h := newHandler(ctx, svc, logger.NewNop())

		for _, path := range []string{"/", "/healthz", "/departments", "/openapi.yaml", "/api-docs", "/metrics"} {
			convey.Convey("When requesting "+path, func() {
				w := httptest.NewRecorder()
				h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))

				convey.Convey("Then it responds 200", func() {
					convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				})
			})
		}
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Given the runtime", t, func() {
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
