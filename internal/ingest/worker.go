package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/lorekeep/lorekeep/internal/chunk"
	"github.com/lorekeep/lorekeep/internal/document"
	"github.com/lorekeep/lorekeep/internal/manifest"
)

// Store is the slice of the vector store the ingestion pipeline needs.
type Store interface {
	Add(ctx context.Context, chunks []chunk.Chunk) error
	DeleteBySource(ctx context.Context, path string) error
}

// Loader parses files into segments. The document registry satisfies this.
type Loader interface {
	Load(ctx context.Context, path string) ([]document.Segment, error)
}

// Splitter turns segments into store-ready chunks.
type Splitter interface {
	Split(segments []document.Segment) []chunk.Chunk
}

// Tracker records index membership. The manifest satisfies this.
type Tracker interface {
	Set(path string, sig manifest.Signature) error
	Remove(path string) error
}

// Worker is the single sequential consumer of the change-event queue.
// Exactly one Run loop drains the queue, so store mutations for different
// events never race each other. A failure on one event is logged and the
// loop moves on; nothing short of queue closure stops it.
type Worker struct {
	queue    *Queue
	store    Store
	loader   Loader
	splitter Splitter
	tracker  Tracker
	logger   *slog.Logger

	// debounce lets in-flight writes settle before a file is read.
	debounce time.Duration
}

// NewWorker creates a worker. Call Run on its own goroutine.
func NewWorker(queue *Queue, store Store, loader Loader, splitter Splitter, tracker Tracker, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:    queue,
		store:    store,
		loader:   loader,
		splitter: splitter,
		tracker:  tracker,
		logger:   logger.With("component", "sync-worker"),
		debounce: time.Second,
	}
}

// Run consumes events until the queue is closed and drained, or ctx is
// canceled.
func (w *Worker) Run(ctx context.Context) {
	for {
		ev, ok := w.queue.Get()
		if !ok {
			return
		}

		select {
		case <-time.After(w.debounce):
		case <-ctx.Done():
			return
		}

		if w.store == nil {
			// Startup race: the store does not exist yet. Requeue so the
			// event is not lost; the debounce above doubles as backoff.
			w.queue.Put(ev)
			continue
		}

		w.logger.Info("processing", "op", ev.Op.String(), "file", filepath.Base(ev.Path))
		if err := w.process(ctx, ev); err != nil {
			w.logger.Error("processing event", "op", ev.Op.String(), "path", ev.Path, "error", err)
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (w *Worker) process(ctx context.Context, ev Event) error {
	switch ev.Op {
	case OpDelete:
		return w.delete(ctx, ev.Path)
	case OpAdd, OpUpdate:
		return w.upsert(ctx, ev.Path)
	default:
		return nil
	}
}

func (w *Worker) delete(ctx context.Context, path string) error {
	if err := w.store.DeleteBySource(ctx, path); err != nil {
		return err
	}
	return w.tracker.Remove(path)
}

// upsert handles both adds and updates: existing chunks for the path are
// deleted first (absence is fine), which makes updates a plain re-add and
// keeps the operation idempotent.
func (w *Worker) upsert(ctx context.Context, path string) error {
	if err := w.store.DeleteBySource(ctx, path); err != nil {
		w.logger.Debug("pre-delete before insert", "path", path, "error", err)
	}

	segments, err := w.loader.Load(ctx, path)
	if err != nil {
		// Loader failures are per-file: skip, leave the manifest untouched
		// so the file stays eligible for retry.
		w.logger.Warn("loading document", "path", path, "error", err)
		return nil
	}
	if len(segments) == 0 {
		return nil
	}

	chunks := w.splitter.Split(segments)
	if len(chunks) == 0 {
		return nil
	}

	if err := w.store.Add(ctx, chunks); err != nil {
		// No manifest write after a failed insert: the file must remain
		// "not indexed" so a later event or bulk pass retries it.
		return err
	}

	sig, err := manifest.FileSignature(path)
	if err != nil {
		return err
	}
	if err := w.tracker.Set(path, sig); err != nil {
		return err
	}

	w.logger.Info("indexed", "file", filepath.Base(path), "chunks", len(chunks))
	return nil
}
