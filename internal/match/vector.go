package match

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/encoder"
	"github.com/modulescout/modulescout/internal/rank"
	"github.com/modulescout/modulescout/internal/retrieval"
)

// VectorSource adapts the encoder and the snapshot's embedding matrix to
// the retrieval.VectorSource interface. Concurrent searches for the same
// query text share one embedding API call via singleflight.
type VectorSource struct {
	store   *catalog.Store
	encoder encoder.Encoder
	timeout time.Duration
	group   singleflight.Group
}

// NewVectorSource creates a vector source. A nil encoder disables it.
func NewVectorSource(store *catalog.Store, enc encoder.Encoder, timeout time.Duration) *VectorSource {
	return &VectorSource{
		store:   store,
		encoder: enc,
		timeout: timeout,
	}
}

// Enabled reports whether vector search can serve: an encoder is configured
// and the active snapshot carries an embedding matrix.
func (v *VectorSource) Enabled() bool {
	if v == nil || v.encoder == nil {
		return false
	}
	return v.store.Snapshot().Matrix().Rows() > 0
}

// Search encodes the query and ranks it against the active snapshot's
// matrix, returning slugs so results stay valid across snapshot swaps.
func (v *VectorSource) Search(ctx context.Context, query string, topN int) ([]retrieval.VectorResult, error) {
	snap := v.store.Snapshot()
	matrix := snap.Matrix()
	if matrix.Rows() == 0 {
		return nil, nil
	}

	vec, err := v.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err := rank.Rank(vec, matrix, topN)
	if err != nil {
		return nil, err
	}

	results := make([]retrieval.VectorResult, len(matches))
	for i, m := range matches {
		results[i] = retrieval.VectorResult{
			Slug:       snap.At(m.Index).Slug,
			Similarity: m.Score,
		}
	}
	return results, nil
}

// embed deduplicates concurrent encodes of identical query text. The shared
// call runs under its own deadline detached from any single caller, so one
// canceled request cannot fail the others.
func (v *VectorSource) embed(ctx context.Context, query string) ([]float32, error) {
	result, err, _ := v.group.Do(query, func() (any, error) {
		embedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.timeout)
		defer cancel()
		return v.encoder.Embed(embedCtx, query)
	})
	if err != nil {
		return nil, err
	}
	return result.([]float32), nil
}
