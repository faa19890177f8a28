// Package manifest persists the record of which files are represented in
// the vector store, keyed by path with the signature used to detect change.
//
// Invariant: a path appears in the manifest iff its chunks are currently in
// the vector store. Callers uphold this by writing the manifest entry only
// after the corresponding store mutation succeeds.
//
// Every mutation is a full read-modify-write of the JSON file under both a
// process-local mutex and an advisory file lock, so concurrent processes
// never observe a partial write.
package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

// Signature identifies a file's content without re-reading it.
// Mtime is epoch seconds (fractional) to survive JSON round-trips from
// earlier releases of the manifest format.
type Signature struct {
	Mtime float64 `json:"mtime"`
	Size  int64   `json:"size"`
}

// FileSignature computes the current signature of the file at path.
func FileSignature(path string) (Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Signature{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return Signature{
		Mtime: float64(info.ModTime().UnixNano()) / 1e9,
		Size:  info.Size(),
	}, nil
}

// Manifest is the persisted path -> Signature map.
type Manifest struct {
	path   string
	mu     sync.Mutex
	flk    *flock.Flock
	logger *slog.Logger
}

// New creates a manifest stored at path. The file is created lazily on the
// first mutation.
func New(path string, logger *slog.Logger) *Manifest {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manifest{
		path:   path,
		flk:    flock.New(path + ".lock"),
		logger: logger,
	}
}

// Snapshot returns the current manifest contents.
func (m *Manifest) Snapshot() (map[string]Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flk.Lock(); err != nil {
		return nil, fmt.Errorf("locking manifest: %w", err)
	}
	defer m.unlock()

	return m.load(), nil
}

// Set records that path is fully represented in the vector store with the
// given signature.
func (m *Manifest) Set(path string, sig Signature) error {
	return m.mutate(func(entries map[string]Signature) {
		entries[path] = sig
	})
}

// Remove deletes the entry for path. Removing an absent path is a no-op.
func (m *Manifest) Remove(path string) error {
	return m.mutate(func(entries map[string]Signature) {
		delete(entries, path)
	})
}

func (m *Manifest) mutate(fn func(map[string]Signature)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.flk.Lock(); err != nil {
		return fmt.Errorf("locking manifest: %w", err)
	}
	defer m.unlock()

	entries := m.load()
	fn(entries)
	return m.write(entries)
}

func (m *Manifest) unlock() {
	if err := m.flk.Unlock(); err != nil {
		m.logger.Warn("unlocking manifest", "error", err)
	}
}

// load reads the manifest file. A missing or unreadable file yields an empty
// map; corruption must never take the ingestion pipeline down. Legacy
// manifests were a newline-separated path list and are read as
// empty-signature entries; they are always written back as JSON.
func (m *Manifest) load() map[string]Signature {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("reading manifest", "path", m.path, "error", err)
		}
		return map[string]Signature{}
	}

	content := strings.TrimSpace(string(raw))
	if content == "" {
		return map[string]Signature{}
	}

	if strings.HasPrefix(content, "{") {
		entries := map[string]Signature{}
		if err := json.Unmarshal([]byte(content), &entries); err != nil {
			m.logger.Warn("parsing manifest", "path", m.path, "error", err)
			return map[string]Signature{}
		}
		return entries
	}

	// Legacy newline list: every path gets an empty signature, which never
	// matches a live file, so each is treated as updated on the next pass.
	entries := map[string]Signature{}
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			entries[line] = Signature{}
		}
	}
	return entries
}

func (m *Manifest) write(entries map[string]Signature) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o750); err != nil {
		return fmt.Errorf("creating manifest directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0o600); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}
