// Package catalog loads and serves the university module catalogue: module
// records, historical grade statistics and the precomputed embedding matrix.
// A loaded snapshot is immutable; reloads swap the whole snapshot atomically.
package catalog

import (
	"errors"
	"strings"
)

// Common errors
var (
	// ErrNotFound is returned when a slug is not present in the catalog
	ErrNotFound = errors.New("module not found")
)

// ModuleRecord is one catalogue entry. Slug is the unique, immutable join
// key between the catalog, the embedding matrix and the statistics file.
type ModuleRecord struct {
	Slug         string            `json:"slug"`
	Title        string            `json:"title"`
	Faculty      string            `json:"faculty,omitempty"`
	Department   string            `json:"department,omitempty"`
	Subject      string            `json:"subject,omitempty"`
	CreditValue  string            `json:"credit_value,omitempty"`
	Level        int               `json:"level,omitempty"` // FHEQ level 4-7
	TeachingTerm string            `json:"teaching_term,omitempty"`
	Outline      string            `json:"outline,omitempty"`
	Aims         []string          `json:"aims,omitempty"`
	Restrictions string            `json:"restrictions,omitempty"`
	Assessment   map[string]string `json:"assessment,omitempty"`       // Assessment label -> percentage
	Learning     map[string]string `json:"learning_methods,omitempty"` // Teaching method -> hours/description

	// Predicates are derived from the Restrictions text at load time and
	// never serialized back out.
	Predicates RestrictionPredicates `json:"-"`
}

// EmbeddingText returns the text encoded into the module's embedding row.
// The layout must stay in sync with the indexer, since the content hash of
// this string decides whether a cached vector can be reused.
func (m *ModuleRecord) EmbeddingText() string {
	parts := make([]string, 0, 3+len(m.Aims))
	parts = append(parts, m.Title)
	if m.Subject != "" {
		parts = append(parts, m.Subject)
	}
	if m.Outline != "" {
		parts = append(parts, m.Outline)
	}
	parts = append(parts, m.Aims...)
	return strings.Join(parts, "\n")
}

// YearStats holds one academic year's grade statistics for a module.
type YearStats struct {
	Year     string         `json:"year"` // Label, e.g. "2023/24"
	MeanMark float64        `json:"mean_mark"`
	Students int            `json:"students"`
	Buckets  map[string]int `json:"buckets,omitempty"` // Grade band -> count
}

// ModuleStats is the per-module statistics series, oldest first.
type ModuleStats struct {
	YearData []YearStats `json:"year_data"`
}

// Latest returns the most recent year's statistics, or nil when empty.
func (s *ModuleStats) Latest() *YearStats {
	if s == nil || len(s.YearData) == 0 {
		return nil
	}
	return &s.YearData[len(s.YearData)-1]
}
