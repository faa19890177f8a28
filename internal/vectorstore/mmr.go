package vectorstore

import (
	chromem "github.com/philippgille/chromem-go"
)

// rerankMMR selects up to k candidates by maximal marginal relevance:
//
//	MMR(d) = lambda * Sim(d, query) - (1-lambda) * max Sim(d, selected)
//
// Candidates arrive ranked by query similarity; their embeddings are
// normalized by chromem, so the dot product is the cosine similarity.
// Greedy selection: the best-scoring remaining candidate joins the result
// until k are chosen.
func rerankMMR(candidates []chromem.Result, k int, lambda float64) []chromem.Result {
	if len(candidates) <= k || len(candidates) == 0 {
		return candidates
	}

	selected := make([]chromem.Result, 0, k)
	remaining := make([]chromem.Result, len(candidates))
	copy(remaining, candidates)

	for len(selected) < k && len(remaining) > 0 {
		bestIdx := 0
		bestScore := mmrScore(remaining[0], selected, lambda)
		for i := 1; i < len(remaining); i++ {
			if score := mmrScore(remaining[i], selected, lambda); score > bestScore {
				bestIdx, bestScore = i, score
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

func mmrScore(candidate chromem.Result, selected []chromem.Result, lambda float64) float64 {
	relevance := float64(candidate.Similarity)

	var maxRedundancy float64
	for _, s := range selected {
		if sim := dotProduct(candidate.Embedding, s.Embedding); sim > maxRedundancy {
			maxRedundancy = sim
		}
	}

	return lambda*relevance - (1-lambda)*maxRedundancy
}

func dotProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
