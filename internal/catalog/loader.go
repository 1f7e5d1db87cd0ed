package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	apperrors "github.com/modulescout/modulescout/internal/errors"
	"github.com/modulescout/modulescout/internal/rank"
)

// Paths names the on-disk artifacts a snapshot is assembled from. Stats and
// the embedding pair are optional; the catalog file is not.
type Paths struct {
	Catalog        string
	Stats          string
	Embeddings     string
	EmbeddingsMeta string
}

// Snapshot is one immutable, internally consistent view of the catalog.
// Row i of the embedding matrix always describes Modules()[i].
type Snapshot struct {
	modules  []*ModuleRecord
	bySlug   map[string]*ModuleRecord
	indexOf  map[string]int
	stats    map[string]*ModuleStats
	matrix   *rank.Matrix
	meta     EmbeddingMeta
	loadedAt time.Time
}

// Load reads the catalog artifacts and builds a snapshot, validating the
// invariants the query path depends on. Any violation is a
// CatalogIntegrityError and the caller must keep serving its previous
// snapshot.
func Load(paths Paths) (*Snapshot, error) {
	modules, err := loadModules(paths.Catalog)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		modules:  modules,
		bySlug:   make(map[string]*ModuleRecord, len(modules)),
		indexOf:  make(map[string]int, len(modules)),
		stats:    make(map[string]*ModuleStats),
		loadedAt: time.Now(),
	}
	for i, m := range modules {
		if _, dup := snap.bySlug[m.Slug]; dup {
			return nil, apperrors.NewCatalogIntegrityError(paths.Catalog, "duplicate slug %q", m.Slug)
		}
		snap.bySlug[m.Slug] = m
		snap.indexOf[m.Slug] = i
	}

	if paths.Stats != "" {
		if err := loadStats(paths.Stats, snap.stats); err != nil {
			return nil, err
		}
	}

	if paths.Embeddings != "" && fileExists(paths.EmbeddingsMeta) {
		data, meta, err := ReadEmbeddings(paths.Embeddings, paths.EmbeddingsMeta)
		if err != nil {
			return nil, err
		}
		if meta.Rows != len(modules) {
			return nil, apperrors.NewCatalogIntegrityError(paths.Embeddings,
				"embedding matrix has %d rows, catalog has %d modules", meta.Rows, len(modules))
		}
		matrix, err := rank.NewMatrix(data, meta.Dimensions)
		if err != nil {
			return nil, err
		}
		snap.matrix = matrix
		snap.meta = meta
	}

	return snap, nil
}

// fileExists lets a snapshot load without embeddings; the meta sidecar is
// written last by the indexer, so its presence implies a complete pair.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func loadModules(path string) ([]*ModuleRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var modules []*ModuleRecord
	if err := json.Unmarshal(raw, &modules); err != nil {
		return nil, apperrors.NewCatalogIntegrityError(path, "invalid catalog JSON: %v", err)
	}

	for i, m := range modules {
		if m.Slug == "" {
			return nil, apperrors.NewCatalogIntegrityError(path, "module at index %d has no slug", i)
		}
		if m.Title == "" {
			return nil, apperrors.NewCatalogIntegrityError(path, "module %q has no title", m.Slug)
		}
		if m.Level != 0 && (m.Level < 4 || m.Level > 7) {
			return nil, apperrors.NewCatalogIntegrityError(path, "module %q has level %d, want 4-7", m.Slug, m.Level)
		}
		m.Predicates = ParseRestrictions(m.Restrictions)
	}
	return modules, nil
}

func loadStats(path string, into map[string]*ModuleStats) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Statistics are an enrichment, not a requirement.
			return nil
		}
		return fmt.Errorf("read stats: %w", err)
	}

	var bySlug map[string]*ModuleStats
	if err := json.Unmarshal(raw, &bySlug); err != nil {
		return apperrors.NewCatalogIntegrityError(path, "invalid stats JSON: %v", err)
	}
	for slug, stats := range bySlug {
		into[slug] = stats
	}
	return nil
}

// Len returns the number of modules in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.modules)
}

// Modules returns all modules in catalog order. Callers must not modify the
// returned slice or the records it points to.
func (s *Snapshot) Modules() []*ModuleRecord {
	return s.modules
}

// At returns the module at the given catalog index.
func (s *Snapshot) At(i int) *ModuleRecord {
	return s.modules[i]
}

// Get looks a module up by slug. Returns ErrNotFound for unknown slugs.
func (s *Snapshot) Get(slug string) (*ModuleRecord, error) {
	m, ok := s.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, slug)
	}
	return m, nil
}

// IndexOf returns the catalog index for a slug, or -1 when unknown.
func (s *Snapshot) IndexOf(slug string) int {
	i, ok := s.indexOf[slug]
	if !ok {
		return -1
	}
	return i
}

// Stats returns the grade statistics for a slug, or nil when none exist.
func (s *Snapshot) Stats(slug string) *ModuleStats {
	return s.stats[slug]
}

// Matrix returns the embedding matrix, or nil when the snapshot was loaded
// without embeddings.
func (s *Snapshot) Matrix() *rank.Matrix {
	return s.matrix
}

// Meta returns the embedding metadata for the loaded matrix.
func (s *Snapshot) Meta() EmbeddingMeta {
	return s.meta
}

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}
