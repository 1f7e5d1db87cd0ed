package retrieval

import (
	"sort"
)

const (
	// RRFConstant is the k in the RRF formula 1 / (k + rank). The standard
	// value of 60 balances weight between top- and lower-ranked documents.
	RRFConstant = 60

	// DefaultBM25Weight is the keyword share of the fused score; vector
	// search contributes the remaining 0.6.
	DefaultBM25Weight = 0.4
)

// VectorResult is one embedding similarity hit, by module slug.
type VectorResult struct {
	Slug       string
	Similarity float32
}

// FusedResult is one module's combined standing across both sources.
type FusedResult struct {
	Slug       string
	RRFScore   float64
	BM25Score  float64 // 0 when absent from keyword results
	VectorSim  float32 // 0 when absent from vector results
	BM25Rank   int     // 0 when absent
	VectorRank int     // 0 when absent
}

// FuseRRF combines keyword and vector results with weighted Reciprocal
// Rank Fusion:
//
//	score(d) = bm25Weight/(k + bm25Rank) + (1-bm25Weight)/(k + vectorRank)
//
// Results are sorted by fused score descending, ties broken by ascending
// slug so the ordering is deterministic.
func FuseRRF(keyword []KeywordResult, vector []VectorResult, bm25Weight float64, topN int) []FusedResult {
	if bm25Weight < 0 {
		bm25Weight = 0
	}
	if bm25Weight > 1 {
		bm25Weight = 1
	}
	vectorWeight := 1.0 - bm25Weight

	fused := make(map[string]*FusedResult)

	for i, r := range keyword {
		rank := i + 1
		fused[r.Slug] = &FusedResult{
			Slug:      r.Slug,
			RRFScore:  bm25Weight / float64(RRFConstant+rank),
			BM25Score: r.Score,
			BM25Rank:  rank,
		}
	}

	for i, r := range vector {
		rank := i + 1
		score := vectorWeight / float64(RRFConstant+rank)

		if existing, ok := fused[r.Slug]; ok {
			existing.VectorSim = r.Similarity
			existing.VectorRank = rank
			existing.RRFScore += score
		} else {
			fused[r.Slug] = &FusedResult{
				Slug:       r.Slug,
				RRFScore:   score,
				VectorSim:  r.Similarity,
				VectorRank: rank,
			}
		}
	}

	results := make([]FusedResult, 0, len(fused))
	for _, r := range fused {
		results = append(results, *r)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		return results[i].Slug < results[j].Slug
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}
