package retrieval

import (
	"context"
	"sync"

	"github.com/modulescout/modulescout/internal/logger"
)

// VectorSource performs embedding similarity search. The match service
// provides one backed by the encoder and the snapshot's embedding matrix.
type VectorSource interface {
	Search(ctx context.Context, query string, topN int) ([]VectorResult, error)
	Enabled() bool
}

// Result is one hybrid search hit. Score is the vector similarity when the
// module was seen by vector search, otherwise a rank-derived confidence.
type Result struct {
	Slug       string
	Score      float32
	BM25Rank   int // 0 when keyword search did not surface the module
	VectorRank int // 0 when vector search did not surface the module
}

// Hybrid combines keyword and vector retrieval with RRF fusion.
// Either source may be absent; the other then serves alone.
type Hybrid struct {
	vector     VectorSource
	index      *Index
	bm25Weight float64
	logger     *logger.Logger
}

// NewHybrid creates a hybrid searcher. A nil vector source or nil index
// disables that side.
func NewHybrid(vector VectorSource, index *Index, bm25Weight float64, log *logger.Logger) *Hybrid {
	return &Hybrid{
		vector:     vector,
		index:      index,
		bm25Weight: bm25Weight,
		logger:     log,
	}
}

// Enabled reports whether at least one retrieval source is available.
func (h *Hybrid) Enabled() bool {
	if h == nil {
		return false
	}
	return h.index.Enabled() || (h.vector != nil && h.vector.Enabled())
}

// Search runs both sources in parallel and fuses the results.
//
// A failed or empty source degrades to single-source results rather than an
// error, except when vector search fails and keyword search has nothing to
// offer either; then the error propagates so the caller can answer with the
// proper status.
func (h *Hybrid) Search(ctx context.Context, query string, topN int) ([]Result, error) {
	if h == nil {
		return nil, nil
	}

	keywordEnabled := h.index.Enabled()
	vectorEnabled := h.vector != nil && h.vector.Enabled()
	if !keywordEnabled && !vectorEnabled {
		return nil, nil
	}

	// Fetch more than requested so fusion has overlap to work with.
	fetchN := topN * 3
	if fetchN < 30 {
		fetchN = 30
	}

	var (
		keywordResults []KeywordResult
		vectorResults  []VectorResult
		keywordErr     error
		vectorErr      error
		wg             sync.WaitGroup
	)

	if keywordEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			keywordResults, keywordErr = h.index.Search(query, fetchN)
		}()
	}
	if vectorEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectorResults, vectorErr = h.vector.Search(ctx, query, fetchN)
		}()
	}
	wg.Wait()

	if keywordErr != nil {
		h.logger.WithError(keywordErr).Warn("Keyword search failed")
	}
	if vectorErr != nil {
		h.logger.WithError(vectorErr).Warn("Vector search failed")
		if len(keywordResults) == 0 {
			return nil, vectorErr
		}
	}

	// Single-source scenarios.
	if len(keywordResults) == 0 {
		results := make([]Result, 0, min(len(vectorResults), topN))
		for i, r := range vectorResults {
			if len(results) >= topN {
				break
			}
			results = append(results, Result{Slug: r.Slug, Score: r.Similarity, VectorRank: i + 1})
		}
		return results, nil
	}
	if len(vectorResults) == 0 {
		results := make([]Result, 0, min(len(keywordResults), topN))
		for _, r := range keywordResults {
			if len(results) >= topN {
				break
			}
			results = append(results, Result{Slug: r.Slug, Score: RankConfidence(r.Rank), BM25Rank: r.Rank})
		}
		return results, nil
	}

	fused := FuseRRF(keywordResults, vectorResults, h.bm25Weight, topN)

	h.logger.WithFields(map[string]any{
		"keyword_count": len(keywordResults),
		"vector_count":  len(vectorResults),
		"fused_count":   len(fused),
	}).Debug("Hybrid search completed")

	return toResults(fused), nil
}

// Index returns the underlying keyword index.
func (h *Hybrid) Index() *Index {
	if h == nil {
		return nil
	}
	return h.index
}

// toResults flattens fused results to the public result shape. Modules seen
// by vector search keep their true similarity; keyword-only modules get a
// confidence scaled from their fused standing.
func toResults(fused []FusedResult) []Result {
	if len(fused) == 0 {
		return nil
	}
	maxScore := fused[0].RRFScore

	results := make([]Result, len(fused))
	for i, fr := range fused {
		score := fr.VectorSim
		if score <= 0 && maxScore > 0 {
			score = float32(fr.RRFScore / maxScore)
		}
		results[i] = Result{
			Slug:       fr.Slug,
			Score:      score,
			BM25Rank:   fr.BM25Rank,
			VectorRank: fr.VectorRank,
		}
	}
	return results
}
