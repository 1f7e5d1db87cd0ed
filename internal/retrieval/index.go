// Package retrieval provides keyword and hybrid retrieval over the module
// catalogue. BM25 keyword search complements embedding similarity; the two
// are combined with Reciprocal Rank Fusion.
package retrieval

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/crawlab-team/bm25"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/logger"
)

// KeywordResult is one BM25 hit, deduplicated to module granularity.
type KeywordResult struct {
	Slug  string
	Score float64 // BM25 score, unbounded and query-dependent
	Rank  int     // 1-indexed rank position
}

// Index provides BM25 keyword search over module text. Each module
// contributes several field-level documents (title, outline, aims) so a
// match in any field surfaces the module; hits collapse back to one result
// per slug.
type Index struct {
	mu          sync.RWMutex
	okapi       *bm25.BM25Okapi
	corpus      []string
	docSlugs    []string // document index -> owning module slug
	logger      *logger.Logger
	initialized bool
}

// NewIndex creates an empty keyword index.
func NewIndex(log *logger.Logger) *Index {
	return &Index{logger: log}
}

// Build indexes the given modules, replacing any previous contents. BM25
// IDF statistics are corpus-global, so updates are full rebuilds.
func (idx *Index) Build(modules []*catalog.ModuleRecord) error {
	if idx == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var corpus []string
	var docSlugs []string
	for _, m := range modules {
		for _, doc := range moduleDocuments(m) {
			if strings.TrimSpace(doc) == "" {
				continue
			}
			corpus = append(corpus, doc)
			docSlugs = append(docSlugs, m.Slug)
		}
	}

	if len(corpus) == 0 {
		idx.okapi = nil
		idx.corpus = nil
		idx.docSlugs = nil
		idx.initialized = true
		return nil
	}

	// k1=1.5, b=0.75 are standard BM25 parameters
	okapi, err := bm25.NewBM25Okapi(corpus, tokenize, 1.5, 0.75, nil)
	if err != nil {
		return fmt.Errorf("build keyword index: %w", err)
	}

	idx.okapi = okapi
	idx.corpus = corpus
	idx.docSlugs = docSlugs
	idx.initialized = true

	idx.logger.WithFields(map[string]any{
		"modules":   len(modules),
		"documents": len(corpus),
	}).Info("Keyword index built")
	return nil
}

// Search scores the query against every document, deduplicates to one hit
// per module (keeping the best document score) and returns up to topN hits
// in descending score order. Ties break on ascending slug.
func (idx *Index) Search(query string, topN int) ([]KeywordResult, error) {
	if idx == nil {
		return nil, nil
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.initialized || idx.okapi == nil {
		return nil, nil
	}

	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	scores, err := idx.okapi.GetScores(tokens)
	if err != nil {
		return nil, fmt.Errorf("keyword scoring: %w", err)
	}

	best := make(map[string]float64)
	for docID, score := range scores {
		if score <= 0 {
			continue
		}
		slug := idx.docSlugs[docID]
		if score > best[slug] {
			best[slug] = score
		}
	}

	results := make([]KeywordResult, 0, len(best))
	for slug, score := range best {
		results = append(results, KeywordResult{Slug: slug, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Slug < results[j].Slug
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// Enabled reports whether the index has been built.
func (idx *Index) Enabled() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized && idx.okapi != nil
}

// Count returns the number of indexed documents.
func (idx *Index) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.corpus)
}

// RankConfidence converts a rank position into a confidence score for
// keyword-only results. BM25 scores are unbounded and query-dependent, so
// rank position is the only honest proxy.
//
// Formula: 1 / (1 + 0.05 * rank)
//   - rank 1 -> 0.95
//   - rank 10 -> 0.67
//   - rank 20 -> 0.50
func RankConfidence(rank int) float32 {
	if rank <= 0 {
		return 0
	}
	return float32(1.0 / (1.0 + 0.05*float64(rank)))
}

// moduleDocuments splits a module into field-level documents for indexing.
func moduleDocuments(m *catalog.ModuleRecord) []string {
	docs := make([]string, 0, 2+len(m.Aims))
	title := m.Title
	if m.Subject != "" {
		title += " " + m.Subject
	}
	docs = append(docs, title)
	if m.Outline != "" {
		docs = append(docs, m.Outline)
	}
	docs = append(docs, m.Aims...)
	return docs
}

// tokenize lowercases and splits text into alphanumeric word tokens. The
// catalogue is English, so word tokens are enough.
func tokenize(text string) []string {
	text = strings.ToLower(text)
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
