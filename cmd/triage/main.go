package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/triage/internal/adapters/http/api"
	"github.com/okian/triage/internal/adapters/http/site"
	"github.com/okian/triage/internal/adapters/http/swagger"
	"github.com/okian/triage/internal/adapters/inference/textclf"
	"github.com/okian/triage/internal/adapters/inference/vitals"
	"github.com/okian/triage/internal/adapters/llm"
	"github.com/okian/triage/internal/adapters/repository"
	service "github.com/okian/triage/internal/app"
	"github.com/okian/triage/internal/config"
	"github.com/okian/triage/internal/domain/waterfall"
	"github.com/okian/triage/pkg/logger"
	"github.com/okian/triage/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 60 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
	llmRetryBackoff       = 500 * time.Millisecond
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.InitWith(os.Stdout, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				log.Error(ctx, "closing report store", logger.Error(err))
			}
		}()
	}

	classifier, err := textclf.New(cfg.ClassifierURL,
		textclf.WithToken(cfg.ClassifierToken),
		textclf.WithLogger(log.Named("textclf")),
	)
	if err != nil {
		return fmt.Errorf("text classifier: %w", err)
	}

	inferer, err := vitals.New(cfg.VitalsModelPath, cfg.VitalsScalerPath,
		vitals.WithLibraryPath(cfg.VitalsORTLibrary),
		vitals.WithLogger(log.Named("vitals")),
	)
	if err != nil {
		return fmt.Errorf("vitals inferer: %w", err)
	}
	defer func() {
		if err := inferer.Close(); err != nil {
			log.Error(ctx, "closing vitals session", logger.Error(err))
		}
	}()

	llmClient, err := newLLMClient(cfg, log)
	if err != nil {
		return err
	}

	loader, err := newCatalogLoader(ctx, cfg, store)
	if err != nil {
		return err
	}

	svc, err := service.New(classifier, inferer, llmClient, llmClient, loader, serviceOptions(cfg, store, log)...)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openStore opens the SQLite database, or returns nil when db_path is unset.
func openStore(cfg *config.Config, log logger.Logger) (*repository.SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, nil
	}
	store, err := repository.OpenSQLite(cfg.DBPath, repository.WithLogger(log.Named("repository")))
	if err != nil {
		return nil, fmt.Errorf("open report store: %w", err)
	}
	return store, nil
}

func newLLMClient(cfg *config.Config, log logger.Logger) (*llm.Client, error) {
	apiKey := cfg.OpenAIAPIKey
	if cfg.LLMProvider == config.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	completer, err := llm.NewCompleter(cfg.LLMProvider, apiKey, cfg.LLMModel, cfg.LLMBaseURL)
	if err != nil {
		return nil, fmt.Errorf("llm: %w", err)
	}
	return llm.New(completer,
		llm.WithMaxRetries(cfg.LLMMaxRetries),
		llm.WithBackoff(llmRetryBackoff),
		llm.WithLogger(log.Named("llm")),
	), nil
}

// newCatalogLoader picks the department source. The sqlite table is seeded
// from catalog_path when it is empty.
func newCatalogLoader(ctx context.Context, cfg *config.Config, store *repository.SQLiteStore) (repository.CatalogLoader, error) {
	if cfg.CatalogSource != config.CatalogSourceSQLite {
		return repository.NewCSVCatalog(cfg.CatalogPath), nil
	}
	if store == nil {
		return nil, fmt.Errorf("%w: sqlite catalog needs db_path", config.ErrInvalidConfig)
	}
	n, err := store.CountDepartments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count departments: %w", err)
	}
	if n == 0 && cfg.CatalogPath != "" {
		deps, err := repository.ReadDepartmentsCSV(cfg.CatalogPath)
		if err != nil {
			return nil, fmt.Errorf("seed departments: %w", err)
		}
		if err := store.ReplaceDepartments(ctx, deps); err != nil {
			return nil, fmt.Errorf("seed departments: %w", err)
		}
	}
	return store, nil
}

func serviceOptions(cfg *config.Config, store *repository.SQLiteStore, log logger.Logger) []service.Option {
	order := waterfall.ByMagnitude
	if cfg.WaterfallOrder == config.OrderSigned {
		order = waterfall.BySigned
	}
	opts := []service.Option{
		service.WithLogger(log),
		service.WithWeights(cfg.TextWeight, cfg.VitalsWeight),
		service.WithTolerance(cfg.IntegrityTolerance),
		service.WithOrder(order),
		service.WithDependencyTimeout(time.Duration(cfg.DependencyTimeoutMS) * time.Millisecond),
		service.WithReloadSchedule(cfg.CatalogReloadSchedule),
	}
	if store != nil {
		opts = append(opts, service.WithReportStore(store))
	}
	return opts
}

func newHandler(ctx context.Context, svc *service.Service, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc, log.Named("http")).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
