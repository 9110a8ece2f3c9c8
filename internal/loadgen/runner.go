package loadgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/triage/pkg/logger"
)

const (
	directoryPermission = 0o750
	percent             = 100
)

// ErrInvalidConfig is returned for unusable run settings.
var ErrInvalidConfig = errors.New("invalid load configuration")

// Run checks the service, submits cfg.Requests synthetic cases with
// cfg.Workers concurrent workers, and writes a summary to out.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	if cfg.Requests <= 0 || cfg.Workers <= 0 || cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: requests=%d workers=%d url=%q", ErrInvalidConfig, cfg.Requests, cfg.Workers, cfg.BaseURL)
	}
	log := logger.Get()
	log.Info(ctx, "starting triage load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
	)

	client := NewHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.CheckHealth(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	cases := NewGenerator(cfg.Seed).Generate(cfg.Requests)
	if cfg.OutputFile != "" {
		if err := saveCases(cfg.OutputFile, cases); err != nil {
			log.Warn(ctx, "failed to save cases to file", logger.Error(err))
		}
	}

	stats := &Stats{StartTime: time.Now()}
	submit(ctx, cfg, client, cases, stats)
	stats.Duration = time.Since(stats.StartTime)

	printSummary(out, stats)
	return stats, nil
}

func submit(ctx context.Context, cfg *Config, client *HTTPClient, cases []Case, stats *Stats) {
	log := logger.Get()
	work := make(chan Case, cfg.Workers*2)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tc := range work {
				res, err := client.Submit(ctx, tc)
				if err != nil && cfg.Verbose {
					log.Warn(ctx, "request failed", logger.Error(err))
				}
				mu.Lock()
				stats.Add(res)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(work)
		for _, tc := range cases {
			select {
			case <-ctx.Done():
				return
			case work <- tc:
			}
		}
	}()

	wg.Wait()
}

func saveCases(filename string, cases []Case) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cases, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cases: %w", err)
	}
	return os.WriteFile(filename, data, 0o600)
}

func printSummary(w io.Writer, s *Stats) {
	var successRate, perSecond float64
	if s.Submitted > 0 {
		successRate = float64(s.Successful) / float64(s.Submitted) * percent
	}
	if s.Duration > 0 {
		perSecond = float64(s.Submitted) / s.Duration.Seconds()
	}
	fmt.Fprintf(w, `Triage load run
  submitted:          %d
  successful:         %d (%.1f%%)
  routing violations: %d
  timeouts:           %d
  unavailable:        %d
  data integrity:     %d
  other failures:     %d
  integrity warnings: %d
  mean risk:          %.1f
  duration:           %s (%.1f req/s)
`, s.Submitted, s.Successful, successRate, s.RoutingViolations, s.Timeouts, s.Unavailable,
		s.DataIntegrity, s.Failed, s.IntegrityWarnings, s.MeanRisk(), s.Duration.Round(time.Millisecond), perSecond)
}
