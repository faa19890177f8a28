package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/internal/log"
)

func newTestManifest(t *testing.T) *Manifest {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "indexed_files.txt"), log.NewNop())
}

func TestSnapshotMissingFile(t *testing.T) {
	m := newTestManifest(t)

	entries, err := m.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSetAndSnapshot(t *testing.T) {
	m := newTestManifest(t)

	sig := Signature{Mtime: 1700000000.25, Size: 42}
	require.NoError(t, m.Set("/docs/a.txt", sig))

	entries, err := m.Snapshot()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, sig, entries["/docs/a.txt"])
}

func TestRoundTripAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexed_files.txt")

	m1 := New(path, log.NewNop())
	require.NoError(t, m1.Set("/docs/a.txt", Signature{Mtime: 1.5, Size: 10}))
	require.NoError(t, m1.Set("/docs/b.pdf", Signature{Mtime: 2.5, Size: 20}))

	// A fresh instance reads what the first one wrote.
	m2 := New(path, log.NewNop())
	entries, err := m2.Snapshot()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(20), entries["/docs/b.pdf"].Size)
}

func TestRemove(t *testing.T) {
	m := newTestManifest(t)

	require.NoError(t, m.Set("/docs/a.txt", Signature{Size: 1}))
	require.NoError(t, m.Remove("/docs/a.txt"))

	entries, err := m.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Removing an absent path is a no-op.
	require.NoError(t, m.Remove("/docs/never-indexed.txt"))
}

func TestLegacyNewlineList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexed_files.txt")
	legacy := "/docs/a.txt\n/docs/b.pdf\n\n/docs/c.md\n"
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	m := New(path, log.NewNop())
	entries, err := m.Snapshot()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Legacy entries carry empty signatures, which never match a live file.
	assert.Equal(t, Signature{}, entries["/docs/a.txt"])

	// The first mutation rewrites the file as JSON.
	require.NoError(t, m.Set("/docs/d.txt", Signature{Size: 9}))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), raw[0])

	entries, err = m.Snapshot()
	require.NoError(t, err)
	assert.Len(t, entries, 4)
}

func TestCorruptManifestIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexed_files.txt")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	m := New(path, log.NewNop())
	entries, err := m.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileSignature(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	sig, err := FileSignature(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), sig.Size)
	assert.Positive(t, sig.Mtime)

	_, err = FileSignature(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
