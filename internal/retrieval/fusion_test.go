package retrieval

import (
	"math"
	"testing"
)

func TestFuseRRF_OverlapWins(t *testing.T) {
	keyword := []KeywordResult{
		{Slug: "a", Score: 12.0, Rank: 1},
		{Slug: "b", Score: 8.0, Rank: 2},
	}
	vector := []VectorResult{
		{Slug: "b", Similarity: 0.9},
		{Slug: "c", Similarity: 0.85},
	}

	fused := FuseRRF(keyword, vector, 0.4, 10)
	if len(fused) != 3 {
		t.Fatalf("len = %d, want 3", len(fused))
	}
	// b appears in both sources, so it outranks single-source hits.
	if fused[0].Slug != "b" {
		t.Errorf("top slug = %q, want b", fused[0].Slug)
	}
	if fused[0].BM25Rank != 2 || fused[0].VectorRank != 1 {
		t.Errorf("b ranks = (%d, %d), want (2, 1)", fused[0].BM25Rank, fused[0].VectorRank)
	}

	wantScore := 0.4/float64(RRFConstant+2) + 0.6/float64(RRFConstant+1)
	if math.Abs(fused[0].RRFScore-wantScore) > 1e-9 {
		t.Errorf("RRFScore = %v, want %v", fused[0].RRFScore, wantScore)
	}
}

func TestFuseRRF_WeightExtremes(t *testing.T) {
	keyword := []KeywordResult{{Slug: "kw", Score: 5, Rank: 1}}
	vector := []VectorResult{{Slug: "vec", Similarity: 0.99}}

	// All weight on keyword search.
	fused := FuseRRF(keyword, vector, 1.0, 10)
	if fused[0].Slug != "kw" {
		t.Errorf("bm25Weight=1: top = %q, want kw", fused[0].Slug)
	}
	if fused[1].RRFScore != 0 {
		t.Errorf("vector-only slug should score 0 at weight 1, got %v", fused[1].RRFScore)
	}

	// All weight on vector search.
	fused = FuseRRF(keyword, vector, 0.0, 10)
	if fused[0].Slug != "vec" {
		t.Errorf("bm25Weight=0: top = %q, want vec", fused[0].Slug)
	}
}

func TestFuseRRF_WeightClamped(t *testing.T) {
	keyword := []KeywordResult{{Slug: "a", Score: 5, Rank: 1}}

	fused := FuseRRF(keyword, nil, 1.5, 10)
	if got := fused[0].RRFScore; got != 1.0/float64(RRFConstant+1) {
		t.Errorf("RRFScore = %v, weight should clamp to 1", got)
	}
}

func TestFuseRRF_DeterministicTieBreak(t *testing.T) {
	// Two slugs at the same keyword rank position cannot happen, but equal
	// fused scores can when sources mirror each other. Verify slug order.
	keyword := []KeywordResult{{Slug: "zed", Score: 3, Rank: 1}}
	vector := []VectorResult{{Slug: "alpha", Similarity: 0.5}}

	fused := FuseRRF(keyword, vector, 0.5, 10)
	if len(fused) != 2 {
		t.Fatalf("len = %d, want 2", len(fused))
	}
	if fused[0].RRFScore == fused[1].RRFScore && fused[0].Slug != "alpha" {
		t.Errorf("equal scores must order by slug: got %q first", fused[0].Slug)
	}
}

func TestFuseRRF_TopN(t *testing.T) {
	keyword := []KeywordResult{
		{Slug: "a", Score: 3, Rank: 1},
		{Slug: "b", Score: 2, Rank: 2},
		{Slug: "c", Score: 1, Rank: 3},
	}
	fused := FuseRRF(keyword, nil, 0.4, 2)
	if len(fused) != 2 {
		t.Errorf("len = %d, want topN = 2", len(fused))
	}
}
