package vectorstore

import (
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// candidate builds a result with a unit embedding and a similarity score.
func candidate(id string, sim float32, embedding []float32) chromem.Result {
	return chromem.Result{ID: id, Similarity: sim, Embedding: embedding}
}

func ids(results []chromem.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.ID)
	}
	return out
}

func TestRerankMMRPureRelevance(t *testing.T) {
	// lambda=1 ignores redundancy entirely: the top-similarity candidates
	// win even when they are identical to each other.
	same := []float32{1, 0, 0}
	candidates := []chromem.Result{
		candidate("a", 0.9, same),
		candidate("b", 0.8, same),
		candidate("c", 0.7, []float32{0, 1, 0}),
	}

	got := rerankMMR(candidates, 2, 1.0)
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestRerankMMRPureDiversity(t *testing.T) {
	// lambda=0 ignores relevance after the first pick: the near-duplicate
	// of the first result loses to the orthogonal one.
	candidates := []chromem.Result{
		candidate("a", 0.9, []float32{1, 0, 0}),
		candidate("a2", 0.89, []float32{1, 0, 0}),
		candidate("b", 0.1, []float32{0, 1, 0}),
	}

	got := rerankMMR(candidates, 2, 0.0)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestRerankMMRBalanced(t *testing.T) {
	candidates := []chromem.Result{
		candidate("a", 0.95, []float32{1, 0, 0}),
		candidate("dup", 0.94, []float32{1, 0, 0}),
		candidate("c", 0.80, []float32{0, 1, 0}),
		candidate("d", 0.10, []float32{0, 0, 1}),
	}

	// dup scores 0.5*0.94 - 0.5*1.0 = -0.03; c scores 0.5*0.80 - 0 = 0.40.
	got := rerankMMR(candidates, 2, 0.5)
	assert.Equal(t, []string{"a", "c"}, ids(got))
}

func TestRerankMMRFewerCandidatesThanK(t *testing.T) {
	candidates := []chromem.Result{
		candidate("a", 0.9, []float32{1, 0}),
	}

	got := rerankMMR(candidates, 5, 0.5)
	assert.Equal(t, candidates, got)

	assert.Empty(t, rerankMMR(nil, 5, 0.5))
}

func TestDotProduct(t *testing.T) {
	assert.InDelta(t, 1.0, dotProduct([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, dotProduct([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.5, dotProduct([]float32{0.5, 0.5}, []float32{1, 0}), 1e-9)
	// Mismatched lengths use the shorter vector: 1*2 + 2*1.
	assert.InDelta(t, 4.0, dotProduct([]float32{1, 2, 3}, []float32{2, 1}), 1e-9)
}

func TestSearchOptionDefaults(t *testing.T) {
	cfg := &searchConfig{topK: 4, fetchK: 20, lambda: 0.5}
	for _, opt := range []SearchOption{WithTopK(0), WithFetchK(-1), WithLambda(1.5)} {
		opt(cfg)
	}
	// Invalid values leave the defaults untouched.
	assert.Equal(t, 4, cfg.topK)
	assert.Equal(t, 20, cfg.fetchK)
	assert.Equal(t, 0.5, cfg.lambda)

	for _, opt := range []SearchOption{WithTopK(2), WithFetchK(50), WithLambda(0.9)} {
		opt(cfg)
	}
	assert.Equal(t, 2, cfg.topK)
	assert.Equal(t, 50, cfg.fetchK)
	assert.Equal(t, 0.9, cfg.lambda)
}
