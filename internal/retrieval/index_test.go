package retrieval

import (
	"io"
	"reflect"
	"testing"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func chemistryModules() []*catalog.ModuleRecord {
	return []*catalog.ModuleRecord{
		{
			Slug:    "organic-chemistry-CHEM0019",
			Title:   "Organic Chemistry",
			Subject: "Chemistry",
			Outline: "Reaction mechanisms, stereochemistry and synthesis of organic molecules.",
			Aims:    []string{"Understand carbonyl chemistry."},
		},
		{
			Slug:    "linear-algebra-MATH0006",
			Title:   "Linear Algebra for Physicists",
			Subject: "Mathematics",
			Outline: "Vector spaces, eigenvalues and matrix diagonalisation.",
		},
		{
			Slug:    "thermodynamics-PHAS0024",
			Title:   "Statistical Thermodynamics",
			Subject: "Physics",
			Outline: "Entropy, partition functions and the laws of thermodynamics.",
		},
	}
}

func builtIndex(t *testing.T) *Index {
	t.Helper()
	idx := NewIndex(testLogger())
	if err := idx.Build(chemistryModules()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return idx
}

func TestIndex_Search(t *testing.T) {
	idx := builtIndex(t)

	results, err := idx.Search("organic reaction mechanisms", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search() returned no results")
	}
	if results[0].Slug != "organic-chemistry-CHEM0019" {
		t.Errorf("top slug = %q, want the chemistry module", results[0].Slug)
	}
	if results[0].Rank != 1 {
		t.Errorf("top rank = %d, want 1", results[0].Rank)
	}
}

func TestIndex_SearchDeduplicatesFields(t *testing.T) {
	idx := builtIndex(t)

	// "chemistry" appears in the title, outline and aims documents of the
	// same module; it must still surface once.
	results, err := idx.Search("chemistry", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	seen := map[string]int{}
	for _, r := range results {
		seen[r.Slug]++
	}
	for slug, n := range seen {
		if n > 1 {
			t.Errorf("slug %q appears %d times, want 1", slug, n)
		}
	}
}

func TestIndex_SearchTopN(t *testing.T) {
	idx := builtIndex(t)

	results, err := idx.Search("chemistry thermodynamics algebra", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) > 1 {
		t.Errorf("len = %d, want at most 1", len(results))
	}
}

func TestIndex_EmptyQuery(t *testing.T) {
	idx := builtIndex(t)

	for _, q := range []string{"", "   ", "!!!"} {
		results, err := idx.Search(q, 10)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		if len(results) != 0 {
			t.Errorf("Search(%q) returned %d results, want 0", q, len(results))
		}
	}
}

func TestIndex_NotBuilt(t *testing.T) {
	idx := NewIndex(testLogger())

	if idx.Enabled() {
		t.Error("Enabled() = true before Build()")
	}
	results, err := idx.Search("anything", 10)
	if err != nil || results != nil {
		t.Errorf("Search() before Build() = (%v, %v), want (nil, nil)", results, err)
	}
}

func TestIndex_BuildEmpty(t *testing.T) {
	idx := NewIndex(testLogger())
	if err := idx.Build(nil); err != nil {
		t.Fatalf("Build(nil) error = %v", err)
	}
	if idx.Count() != 0 {
		t.Errorf("Count() = %d, want 0", idx.Count())
	}
}

func TestIndex_Rebuild(t *testing.T) {
	idx := builtIndex(t)
	before := idx.Count()

	if err := idx.Build(chemistryModules()[:1]); err != nil {
		t.Fatalf("rebuild error = %v", err)
	}
	if idx.Count() >= before {
		t.Errorf("Count() after smaller rebuild = %d, want < %d", idx.Count(), before)
	}

	results, err := idx.Search("thermodynamics", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Error("rebuilt index still returns removed modules")
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Organic Chemistry: reaction-mechanisms (CHEM0019)!")
	want := []string{"organic", "chemistry", "reaction", "mechanisms", "chem0019"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize() = %v, want %v", got, want)
	}
}

func TestRankConfidence(t *testing.T) {
	if got := RankConfidence(1); got < 0.94 || got > 0.96 {
		t.Errorf("RankConfidence(1) = %f, want ~0.95", got)
	}
	if got := RankConfidence(20); got < 0.49 || got > 0.51 {
		t.Errorf("RankConfidence(20) = %f, want ~0.50", got)
	}
	if RankConfidence(0) != 0 {
		t.Error("RankConfidence(0) != 0")
	}
}
