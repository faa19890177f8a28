// Package vectorstore persists document chunks in an embedded vector
// database and serves similarity search with diversity re-ranking.
//
// The store is backed by chromem-go: a pure-Go embedded vector database that
// persists each collection under a directory and survives process restarts.
// Search over-fetches candidates by cosine similarity and re-ranks them with
// maximal marginal relevance (MMR) so the top results are both relevant and
// mutually non-redundant.
//
// Store is safe for concurrent use: the startup reconciliation pass, the
// live ingestion worker and any number of queries share one instance.
package vectorstore

import (
	"context"
	"fmt"
	"log/slog"

	chromem "github.com/philippgille/chromem-go"

	"github.com/lorekeep/lorekeep/internal/chunk"
)

// Result is a single search hit.
type Result struct {
	ID         string
	Content    string
	Meta       map[string]string
	Similarity float32
}

// SearchOption configures Search via the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK   int
	fetchK int
	lambda float64
}

// WithTopK sets the number of results returned. Default 4.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithFetchK sets how many candidates are over-fetched by similarity before
// diversity re-ranking. Default 20.
func WithFetchK(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.fetchK = n
		}
	}
}

// WithLambda sets the relevance/diversity trade-off: 1 is pure relevance,
// 0 is pure diversity. Default 0.5.
func WithLambda(l float64) SearchOption {
	return func(c *searchConfig) {
		if l >= 0 && l <= 1 {
			c.lambda = l
		}
	}
}

// Store wraps a persistent chromem collection.
type Store struct {
	collection *chromem.Collection
	logger     *slog.Logger
}

// New opens (or creates) the persistent database at path and the named
// collection inside it. embed turns text into vectors; it is called for
// every added chunk and every query.
func New(path, collection string, embed chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening vector store at %s: %w", path, err)
	}

	col, err := db.GetOrCreateCollection(collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", collection, err)
	}

	return &Store{collection: col, logger: logger}, nil
}

// Add embeds and stores the given chunks.
func (s *Store) Add(ctx context.Context, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		docs = append(docs, chromem.Document{
			ID:       c.ID,
			Content:  c.Content,
			Metadata: c.Meta,
		})
	}

	// Embedding is the expensive part; chromem parallelizes it per document.
	if err := s.collection.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("adding %d chunks: %w", len(docs), err)
	}

	s.logger.Debug("added chunks", "count", len(docs))
	return nil
}

// DeleteBySource removes every chunk whose source metadata equals path.
// Deleting a source with no stored chunks is not an error.
func (s *Store) DeleteBySource(ctx context.Context, path string) error {
	if err := s.collection.Delete(ctx, map[string]string{chunk.MetaSource: path}, nil); err != nil {
		return fmt.Errorf("deleting chunks for %s: %w", path, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (s *Store) Count() int {
	return s.collection.Count()
}

// Search retrieves the chunks most relevant to query. It fetches fetchK
// candidates by cosine similarity, then selects topK of them maximizing
// relevance while penalizing near-duplicates (MMR).
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := &searchConfig{topK: 4, fetchK: 20, lambda: 0.5}
	for _, opt := range opts {
		opt(cfg)
	}

	// chromem rejects result counts above the collection size.
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	fetchK := cfg.fetchK
	if fetchK > count {
		fetchK = count
	}

	candidates, err := s.collection.Query(ctx, query, fetchK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying %q: %w", query, err)
	}

	selected := rerankMMR(candidates, cfg.topK, cfg.lambda)

	results := make([]Result, 0, len(selected))
	for _, c := range selected {
		results = append(results, Result{
			ID:         c.ID,
			Content:    c.Content,
			Meta:       c.Metadata,
			Similarity: c.Similarity,
		})
	}
	return results, nil
}
