package match

import (
	"context"
	"strings"

	"github.com/modulescout/modulescout/internal/catalog"
	apperrors "github.com/modulescout/modulescout/internal/errors"
	"github.com/modulescout/modulescout/internal/logger"
	"github.com/modulescout/modulescout/internal/retrieval"
)

// Request is a match query as received from the API.
type Request struct {
	Query     string   `json:"query"`
	Year      int      `json:"year,omitempty"`      // Year of study 1-3, 0 = unconstrained
	Subject   string   `json:"subject,omitempty"`   // Student's subject, for exclusion rules
	Completed []string `json:"completed,omitempty"` // Completed module slugs or codes
	Limit     int      `json:"limit,omitempty"`     // Max results, 0 = server default
}

// Result is one matched module with its relevance score and grade history.
type Result struct {
	Slug         string               `json:"slug"`
	Title        string               `json:"title"`
	Department   string               `json:"department,omitempty"`
	Faculty      string               `json:"faculty,omitempty"`
	Subject      string               `json:"subject,omitempty"`
	Level        int                  `json:"level,omitempty"`
	CreditValue  string               `json:"credit_value,omitempty"`
	TeachingTerm string               `json:"teaching_term,omitempty"`
	Score        float32              `json:"score"`
	Elective     bool                 `json:"elective,omitempty"`
	Stats        *catalog.ModuleStats `json:"stats,omitempty"`
}

// Service runs the match pipeline over the active catalog snapshot.
type Service struct {
	store       *catalog.Store
	hybrid      *retrieval.Hybrid
	logger      *logger.Logger
	defaultTopK int
	maxTopK     int
}

// NewService creates the match service.
func NewService(store *catalog.Store, hybrid *retrieval.Hybrid, defaultTopK, maxTopK int, log *logger.Logger) *Service {
	return &Service{
		store:       store,
		hybrid:      hybrid,
		logger:      log,
		defaultTopK: defaultTopK,
		maxTopK:     maxTopK,
	}
}

// Match validates the request, retrieves candidates and filters them down
// to modules the student may take.
//
// Validation failures are ValidationErrors and happen before any encoding,
// so an empty query never costs an embedding API call. Constraint filtering
// never fails; candidates the student cannot take are silently dropped, and
// an empty result list is a valid answer.
func (s *Service) Match(ctx context.Context, req *Request) ([]Result, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return nil, apperrors.NewValidationError("query", "must not be empty")
	}
	if req.Year < 0 || req.Year > 3 {
		return nil, apperrors.NewValidationError("year", "must be between 0 and 3 (0 = unconstrained)")
	}
	if req.Limit < 0 {
		return nil, apperrors.NewValidationError("limit", "must not be negative")
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.defaultTopK
	}
	if limit > s.maxTopK {
		limit = s.maxTopK
	}

	snap := s.store.Snapshot()

	// Over-fetch: the constraint filter runs after retrieval, so candidates
	// the student cannot take must not eat into the result count.
	candidates, err := s.hybrid.Search(ctx, req.Query, limit*4)
	if err != nil {
		return nil, err
	}

	completed := completedCodes(req.Completed)

	results := make([]Result, 0, limit)
	for _, c := range candidates {
		if len(results) >= limit {
			break
		}
		m, err := snap.Get(c.Slug)
		if err != nil {
			// Candidate from a concurrent snapshot swap; skip it.
			continue
		}
		if !eligible(m, req, completed) {
			continue
		}
		results = append(results, Result{
			Slug:         m.Slug,
			Title:        m.Title,
			Department:   m.Department,
			Faculty:      m.Faculty,
			Subject:      m.Subject,
			Level:        m.Level,
			CreditValue:  m.CreditValue,
			TeachingTerm: m.TeachingTerm,
			Score:        c.Score,
			Elective:     electiveFor(req.Year, m.Level),
			Stats:        snap.Stats(m.Slug),
		})
	}

	s.logger.WithFields(map[string]any{
		"candidates": len(candidates),
		"results":    len(results),
		"year":       req.Year,
	}).Debug("Match completed")

	return results, nil
}

// Lookup returns one module and its grade statistics by slug.
func (s *Service) Lookup(slug string) (*catalog.ModuleRecord, *catalog.ModuleStats, error) {
	snap := s.store.Snapshot()
	m, err := snap.Get(slug)
	if err != nil {
		return nil, nil, err
	}
	return m, snap.Stats(slug), nil
}

// KeywordSearch performs a plain keyword lookup, used by the browse
// endpoint. No encoding and no constraint filtering.
func (s *Service) KeywordSearch(query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewValidationError("q", "must not be empty")
	}
	if limit <= 0 || limit > s.maxTopK {
		limit = s.defaultTopK
	}

	hits, err := s.hybrid.Index().Search(query, limit)
	if err != nil {
		return nil, err
	}

	snap := s.store.Snapshot()
	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		m, err := snap.Get(h.Slug)
		if err != nil {
			continue
		}
		results = append(results, Result{
			Slug:         m.Slug,
			Title:        m.Title,
			Department:   m.Department,
			Faculty:      m.Faculty,
			Subject:      m.Subject,
			Level:        m.Level,
			CreditValue:  m.CreditValue,
			TeachingTerm: m.TeachingTerm,
			Score:        retrieval.RankConfidence(h.Rank),
			Stats:        snap.Stats(m.Slug),
		})
	}
	return results, nil
}
