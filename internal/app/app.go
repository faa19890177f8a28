// Package app provides application initialization and dependency injection.
//
// App is the core container that wires the ingestion pipeline (watcher,
// queue, worker, manifest, vector store) to the query engine. Setup builds
// everything from config; Start runs the startup reconciliation and brings
// the live pipeline up; Close tears it down in reverse order.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lorekeep/lorekeep/internal/chunk"
	"github.com/lorekeep/lorekeep/internal/config"
	"github.com/lorekeep/lorekeep/internal/document"
	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/manifest"
	"github.com/lorekeep/lorekeep/internal/rag"
	"github.com/lorekeep/lorekeep/internal/vectorstore"
)

// App is the core application container.
type App struct {
	Config *config.Config

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Store    *vectorstore.Store
	Manifest *manifest.Manifest
	Registry *document.Registry
	Chunker  *chunk.Chunker
	Engine   *rag.Engine

	// Ingestion pipeline
	Queue   *ingest.Queue
	Watcher *ingest.Watcher
	worker  *ingest.Worker

	logger     *slog.Logger
	cancel     context.CancelFunc
	workerDone chan struct{}
}

// Start brings the ingestion pipeline up. The startup reconciliation runs
// to completion before the watcher begins emitting events, so a file can
// never be indexed twice by the two paths racing.
func (a *App) Start(ctx context.Context) (*ingest.ReconcileResult, error) {
	rec := &ingest.Reconciler{
		Root:     a.Config.DocumentRoot,
		Filter:   a.Registry,
		Store:    a.Store,
		Loader:   a.Registry,
		Splitter: a.Chunker,
		Manifest: a.Manifest,
		Logger:   a.logger,
	}
	result, err := rec.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("startup reconciliation: %w", err)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.workerDone = make(chan struct{})
	go func() {
		defer close(a.workerDone)
		a.worker.Run(workerCtx)
	}()

	if err := a.Watcher.Start(); err != nil {
		cancel()
		<-a.workerDone
		return nil, fmt.Errorf("starting watcher: %w", err)
	}

	a.logger.Info("ingestion pipeline started",
		"root", a.Config.DocumentRoot,
		"indexed", result.Indexed,
		"deleted", result.Deleted,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
	)
	return result, nil
}

// Close gracefully shuts down the pipeline: stop the event source first,
// then let the worker drain whatever is already queued.
func (a *App) Close() error {
	a.logger.Info("shutting down")

	if a.Watcher != nil {
		if err := a.Watcher.Close(); err != nil {
			a.logger.Warn("closing watcher", "error", err)
		}
	}
	if a.Queue != nil {
		a.Queue.Close()
	}
	if a.workerDone != nil {
		<-a.workerDone
	}
	if a.cancel != nil {
		a.cancel()
	}

	return nil
}
