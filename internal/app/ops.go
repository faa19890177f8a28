package app

import (
	"context"
	"sort"

	"github.com/lorekeep/lorekeep/internal/ingest"
	"github.com/lorekeep/lorekeep/internal/manifest"
	"github.com/lorekeep/lorekeep/internal/rag"
)

// Query answers a question against the indexed documents and returns just
// the answer text.
func (a *App) Query(ctx context.Context, question string, opts ...rag.QueryOption) (string, error) {
	answer, err := a.Engine.Query(ctx, question, opts...)
	if err != nil {
		return "", err
	}
	return answer.Text, nil
}

// QueryWithCitations answers a question and returns the answer together
// with a citation for every chunk the answer was grounded in.
func (a *App) QueryWithCitations(ctx context.Context, question string, opts ...rag.QueryOption) (*rag.Answer, error) {
	return a.Engine.Query(ctx, question, opts...)
}

// ListIndexed returns the manifest contents: every indexed path with the
// signature it was indexed at.
func (a *App) ListIndexed() (map[string]manifest.Signature, error) {
	return a.Manifest.Snapshot()
}

// ChunkCount reports how many chunks the vector store holds.
func (a *App) ChunkCount() int {
	return a.Store.Count()
}

// TriggerReindex enqueues an update event for every supported file under
// the document root and returns how many were enqueued. The worker
// re-chunks and re-embeds each file in turn.
func (a *App) TriggerReindex() (int, error) {
	files, err := ingest.Scan(a.Config.DocumentRoot, a.Registry)
	if err != nil {
		return 0, err
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		a.Queue.Put(ingest.Event{Op: ingest.OpUpdate, Path: path})
	}
	return len(paths), nil
}
