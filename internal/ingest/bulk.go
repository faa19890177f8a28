package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/lorekeep/lorekeep/internal/document"
	"github.com/lorekeep/lorekeep/internal/manifest"
)

// Snapshotter extends Tracker with read access, needed for diffing.
type Snapshotter interface {
	Tracker
	Snapshot() (map[string]manifest.Signature, error)
}

// Scan walks the document root and returns the signature of every supported
// file. Office lock files and anything matched by a .loreignore file at the
// root are skipped.
func Scan(root string, filter PathFilter) (map[string]manifest.Signature, error) {
	var ign *ignore.GitIgnore
	ignorePath := filepath.Join(root, ".loreignore")
	if _, err := os.Stat(ignorePath); err == nil {
		// A malformed ignore file is dropped rather than failing the scan.
		ign, _ = ignore.CompileIgnoreFile(ignorePath)
	}

	files := make(map[string]manifest.Signature)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		if ign != nil {
			if rel, relErr := filepath.Rel(root, path); relErr == nil && ign.MatchesPath(rel) {
				return nil
			}
		}
		if !filter.Supported(path) {
			return nil
		}

		sig, sigErr := manifest.FileSignature(path)
		if sigErr != nil {
			// Raced with a delete mid-walk; the watcher will catch up.
			return nil
		}
		files[path] = sig
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	return files, nil
}

// Reconciler is the one-time startup pass that brings the index in line
// with the document root before the live watcher and worker start.
type Reconciler struct {
	Root     string
	Filter   PathFilter
	Store    Store
	Loader   Loader
	Splitter Splitter
	Manifest Snapshotter
	Logger   *slog.Logger

	// Parallelism bounds the CPU-bound parse pool. Zero means NumCPU.
	Parallelism int
}

// ReconcileResult summarizes what the pass did.
type ReconcileResult struct {
	Indexed   int
	Deleted   int
	Unchanged int
	Failed    int
}

// Run diffs the document root against the manifest and repairs the index:
// deletions first, then new and updated files. Parsing runs in a bounded
// pool; the vector store insert is a single sequential operation. A file
// that fails to parse is excluded and counted, never fatal.
func (r *Reconciler) Run(ctx context.Context) (*ReconcileResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "bulk-ingest")

	// A fresh install has no document root yet. Create it so the scan and
	// the watcher that starts afterwards both have a tree to walk.
	if err := os.MkdirAll(r.Root, 0o750); err != nil {
		return nil, fmt.Errorf("creating document root %s: %w", r.Root, err)
	}

	current, err := Scan(r.Root, r.Filter)
	if err != nil {
		return nil, err
	}

	indexed, err := r.Manifest.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var deleted, newFiles, updated []string
	for path := range indexed {
		if _, ok := current[path]; !ok {
			deleted = append(deleted, path)
		}
	}
	for path, sig := range current {
		prev, ok := indexed[path]
		switch {
		case !ok:
			newFiles = append(newFiles, path)
		case prev != sig:
			updated = append(updated, path)
		}
	}
	sort.Strings(deleted)
	sort.Strings(newFiles)
	sort.Strings(updated)

	result := &ReconcileResult{
		Unchanged: len(current) - len(newFiles) - len(updated),
	}

	if len(deleted) > 0 {
		logger.Info("removing deleted documents", "count", len(deleted))
		for _, path := range deleted {
			if err := r.Store.DeleteBySource(ctx, path); err != nil {
				logger.Warn("deleting chunks", "path", path, "error", err)
				continue
			}
			if err := r.Manifest.Remove(path); err != nil {
				logger.Warn("removing manifest entry", "path", path, "error", err)
				continue
			}
			result.Deleted++
		}
	}

	toIngest := append(append([]string{}, newFiles...), updated...)
	if len(toIngest) == 0 {
		logger.Info("no document changes to ingest")
		return result, nil
	}
	logger.Info("ingesting documents", "new", len(newFiles), "updated", len(updated))

	// Updated files lose their stale chunks before reinsertion.
	for _, path := range updated {
		if err := r.Store.DeleteBySource(ctx, path); err != nil {
			logger.Debug("pre-delete before reinsert", "path", path, "error", err)
		}
	}

	segmentsByFile := r.parseAll(ctx, toIngest, logger)
	result.Failed = len(toIngest) - len(segmentsByFile)

	// One sequential insert for the whole batch; the live worker has not
	// started yet, so nothing races this.
	var succeeded []string
	var batch []document.Segment
	for _, path := range toIngest {
		segs, ok := segmentsByFile[path]
		if !ok {
			continue
		}
		batch = append(batch, segs...)
		succeeded = append(succeeded, path)
	}

	if len(batch) > 0 {
		chunks := r.Splitter.Split(batch)
		logger.Info("embedding chunks", "count", len(chunks))
		if err := r.Store.Add(ctx, chunks); err != nil {
			return result, fmt.Errorf("bulk insert: %w", err)
		}
	}

	for _, path := range succeeded {
		sig, ok := current[path]
		if !ok {
			continue
		}
		if err := r.Manifest.Set(path, sig); err != nil {
			logger.Warn("writing manifest entry", "path", path, "error", err)
			continue
		}
		result.Indexed++
	}

	logger.Info("ingestion complete",
		"indexed", result.Indexed, "deleted", result.Deleted,
		"unchanged", result.Unchanged, "failed", result.Failed)
	return result, nil
}

// parseAll loads candidate files in a pool bounded to the hardware
// concurrency. Parsing is CPU-bound and independent per file; one file's
// failure is recorded and the rest proceed.
func (r *Reconciler) parseAll(ctx context.Context, paths []string, logger *slog.Logger) map[string][]document.Segment {
	parallelism := r.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	var mu sync.Mutex
	parsed := make(map[string][]document.Segment, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for _, path := range paths {
		g.Go(func() error {
			segs, err := r.Loader.Load(gctx, path)
			if err != nil {
				logger.Warn("parsing document", "path", path, "error", err)
				return nil
			}
			if len(segs) == 0 {
				return nil
			}
			mu.Lock()
			parsed[path] = segs
			mu.Unlock()
			return nil
		})
	}
	// Workers only return nil; Wait is for completion, not errors.
	_ = g.Wait()

	return parsed
}
