package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/lorekeep/lorekeep/internal/app"
	"github.com/lorekeep/lorekeep/internal/config"
)

// runServe brings the ingestion pipeline up and runs until interrupted.
// The startup reconciliation repairs any drift that accumulated while the
// process was down; fsnotify covers everything after that.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting ingestion service", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	fmt.Printf("Watching %s (startup: %d indexed, %d deleted, %d unchanged, %d failed)\n",
		cfg.DocumentRoot, result.Indexed, result.Deleted, result.Unchanged, result.Failed)
	fmt.Println("Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutting down ingestion service")
	return nil
}
