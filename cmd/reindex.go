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

// runReindex re-ingests every supported file under the document root and
// exits when the queue has drained.
func runReindex() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if _, err := a.Start(ctx); err != nil {
		return fmt.Errorf("starting pipeline: %w", err)
	}

	count, err := a.TriggerReindex()
	if err != nil {
		return fmt.Errorf("triggering reindex: %w", err)
	}
	fmt.Printf("Reindexing %d files...\n", count)

	// Close drains the queue before the worker exits, so by the time the
	// deferred Close returns every enqueued file has been reprocessed.
	return nil
}
