package rank

import (
	"container/heap"
	"fmt"
	"math"

	apperrors "github.com/modulescout/modulescout/internal/errors"
)

// Match pairs a catalog index with its similarity score.
type Match struct {
	Index int     // Catalog index (row in the embedding matrix)
	Score float32 // Cosine similarity, higher = more relevant
}

// Rank computes cosine similarity between the query vector and every matrix
// row and returns the top k matches sorted by descending score. Ties are
// broken by ascending catalog index, so identical inputs always produce the
// identical ordering.
//
// Cosine is used rather than raw dot product because sentence-encoder
// output is not guaranteed unit-norm. Selection uses a bounded min-heap,
// O(n log k), so large catalogs don't pay for a full sort.
//
// Returns ErrInvalidDimension when the query length differs from the matrix
// dimension. An empty matrix yields an empty result, not an error.
func Rank(query []float32, m *Matrix, k int) ([]Match, error) {
	if m.Rows() == 0 {
		return []Match{}, nil
	}
	if len(query) != m.Dim() {
		return nil, fmt.Errorf("query has %d dimensions, matrix has %d: %w",
			len(query), m.Dim(), apperrors.ErrInvalidDimension)
	}
	if k <= 0 {
		return []Match{}, nil
	}
	if k > m.rows {
		k = m.rows
	}

	var qsum float64
	for _, v := range query {
		qsum += float64(v) * float64(v)
	}
	qnorm := float32(math.Sqrt(qsum))

	h := make(matchHeap, 0, k)
	for i := 0; i < m.rows; i++ {
		score := cosine(query, m.Row(i), qnorm, m.norms[i])
		cand := Match{Index: i, Score: score}

		if len(h) < k {
			heap.Push(&h, cand)
			continue
		}
		// Replace the current worst only when the candidate is strictly
		// better; on equal scores the earlier catalog index wins.
		if worse(h[0], cand) {
			h[0] = cand
			heap.Fix(&h, 0)
		}
	}

	// Drain the heap worst-first, then reverse into descending order.
	out := make([]Match, len(h))
	for i := len(h) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Match)
	}
	return out, nil
}

// cosine computes cosine similarity given precomputed norms.
// Zero-norm vectors have no direction; their similarity is defined as 0.
func cosine(a, b []float32, normA, normB float32) float32 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return float32(dot / (float64(normA) * float64(normB)))
}

// worse reports whether a ranks below b: lower score, or equal score with a
// higher catalog index.
func worse(a, b Match) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Index > b.Index
}

// matchHeap is a min-heap keyed on ranking order: the root is always the
// worst match currently retained.
type matchHeap []Match

func (h matchHeap) Len() int            { return len(h) }
func (h matchHeap) Less(i, j int) bool  { return worse(h[i], h[j]) }
func (h matchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *matchHeap) Push(x interface{}) { *h = append(*h, x.(Match)) }
func (h *matchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
