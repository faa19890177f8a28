package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// PathFilter decides whether a path belongs in the index. The document
// registry satisfies this.
type PathFilter interface {
	Supported(path string) bool
}

// Watcher observes the document root recursively and enqueues one change
// event per filesystem event. It never processes anything itself, so it can
// never fall behind the filesystem.
type Watcher struct {
	root    string
	queue   *Queue
	filter  PathFilter
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	started bool
	done    chan struct{}
}

// NewWatcher creates a watcher for root. Call Start to begin observing.
func NewWatcher(root string, queue *Queue, filter PathFilter, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		root:   root,
		queue:  queue,
		filter: filter,
		fsw:    fsw,
		logger: logger.With("component", "watcher"),
		done:   make(chan struct{}),
	}, nil
}

// Start registers the root and all existing subdirectories, then begins
// translating filesystem events into queue entries in a goroutine.
func (w *Watcher) Start() error {
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if addErr := w.fsw.Add(path); addErr != nil {
				return fmt.Errorf("watching %s: %w", path, addErr)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("registering watch tree: %w", err)
	}

	w.started = true
	go w.run()
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	if w.started {
		<-w.done
	}
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("filesystem watch error", "error", err)
		}
	}
}

// handle maps one fsnotify event onto the queue. fsnotify reports a rename
// as Rename on the old path plus a separate Create on the new path, which
// yields the Delete+Add decomposition directly.
func (w *Watcher) handle(ev fsnotify.Event) {
	switch {
	case ev.Op.Has(fsnotify.Create):
		// New directories must be watched; events inside them would
		// otherwise be lost.
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.logger.Warn("watching new directory", "path", ev.Name, "error", err)
			}
			return
		}
		if w.filter.Supported(ev.Name) {
			w.logger.Info("file created", "path", ev.Name)
			w.queue.Put(Event{Op: OpAdd, Path: ev.Name})
		}

	case ev.Op.Has(fsnotify.Write):
		if w.filter.Supported(ev.Name) {
			w.logger.Info("file modified", "path", ev.Name)
			w.queue.Put(Event{Op: OpUpdate, Path: ev.Name})
		}

	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		if w.filter.Supported(ev.Name) {
			w.logger.Info("file removed", "path", ev.Name)
			w.queue.Put(Event{Op: OpDelete, Path: ev.Name})
		}
	}
}
