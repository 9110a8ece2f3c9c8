package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/triage/internal/loadgen"
	"github.com/okian/triage/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := loadgen.Command(os.Stdout).Run(ctx, os.Args); err != nil {
		os.Stderr.WriteString("load run failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
