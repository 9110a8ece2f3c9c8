package loadgen

import (
	"context"
	"io"
	"runtime"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/okian/triage/pkg/logger"
)

// Flag defaults.
const (
	defaultURL      = "http://localhost:9080"
	defaultRequests = 200
	defaultTimeout  = 30 * time.Second
	defaultSeed     = 42
)

// Command builds the loadgen CLI. The summary is written to out.
func Command(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "loadgen",
		Usage: "Submit synthetic patients to a triage service and summarize the outcomes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Base URL of the service",
				Value:   defaultURL,
				Sources: cli.EnvVars("TRIAGE_LOADGEN_URL"),
			},
			&cli.IntFlag{
				Name:  "requests",
				Usage: "Number of assessments to submit",
				Value: defaultRequests,
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Number of concurrent workers",
				Value: runtime.NumCPU(),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Per-request HTTP timeout",
				Value: defaultTimeout,
			},
			&cli.Uint64Flag{
				Name:  "seed",
				Usage: "Seed for the case generator",
				Value: defaultSeed,
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Write generated cases to this JSON file (optional)",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log every failed request",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				_ = logger.SetLevelString("debug")
			}
			return ctx, nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			_, err := Run(ctx, &Config{
				BaseURL:    cmd.String("url"),
				Requests:   cmd.Int("requests"),
				Workers:    cmd.Int("workers"),
				Timeout:    cmd.Duration("timeout"),
				Seed:       cmd.Uint64("seed"),
				OutputFile: cmd.String("output"),
				Verbose:    cmd.Bool("verbose"),
			}, out)
			return err
		},
	}
}
