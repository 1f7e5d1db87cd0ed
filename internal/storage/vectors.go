package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// VectorRepository reads and writes cached embedding vectors.
type VectorRepository struct {
	db *DB
}

// NewVectorRepository creates a repository over the given database.
func NewVectorRepository(db *DB) *VectorRepository {
	return &VectorRepository{db: db}
}

// Get returns the cached vector for a slug and model, but only when the
// stored content hash matches; a changed hash means the module text changed
// and the vector is stale.
func (r *VectorRepository) Get(ctx context.Context, slug, model, contentHash string) ([]float32, bool, error) {
	var storedHash string
	var dimensions int
	var blob []byte

	err := r.db.conn.QueryRowContext(ctx,
		`SELECT content_hash, dimensions, vector FROM embedding_cache WHERE slug = ? AND model = ?`,
		slug, model,
	).Scan(&storedHash, &dimensions, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query embedding cache: %w", err)
	}

	if storedHash != contentHash {
		return nil, false, nil
	}
	if len(blob) != dimensions*4 {
		return nil, false, fmt.Errorf("cached vector for %s has %d bytes, expected %d", slug, len(blob), dimensions*4)
	}
	return decodeVector(blob), true, nil
}

// Put stores a vector, replacing any previous entry for the slug and model.
func (r *VectorRepository) Put(ctx context.Context, slug, model, contentHash string, vector []float32) error {
	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO embedding_cache (slug, model, content_hash, dimensions, vector, cached_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(slug, model) DO UPDATE SET
			content_hash = excluded.content_hash,
			dimensions   = excluded.dimensions,
			vector       = excluded.vector,
			cached_at    = excluded.cached_at`,
		slug, model, contentHash, len(vector), encodeVector(vector),
	)
	if err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors for a model.
func (r *VectorRepository) Count(ctx context.Context, model string) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embedding_cache WHERE model = ?`, model,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}

// Prune deletes cached vectors for slugs no longer in the catalog.
func (r *VectorRepository) Prune(ctx context.Context, model string, keep map[string]bool) (int64, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT slug FROM embedding_cache WHERE model = ?`, model)
	if err != nil {
		return 0, fmt.Errorf("list cached slugs: %w", err)
	}

	var stale []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan slug: %w", err)
		}
		if !keep[slug] {
			stale = append(stale, slug)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	var pruned int64
	for _, slug := range stale {
		res, err := r.db.conn.ExecContext(ctx,
			`DELETE FROM embedding_cache WHERE slug = ? AND model = ?`, slug, model)
		if err != nil {
			return pruned, fmt.Errorf("prune %s: %w", slug, err)
		}
		n, _ := res.RowsAffected()
		pruned += n
	}
	return pruned, nil
}

func encodeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

func decodeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
