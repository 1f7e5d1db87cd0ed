package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/config"
	"github.com/modulescout/modulescout/internal/encoder"
	"github.com/modulescout/modulescout/internal/logger"
	"github.com/modulescout/modulescout/internal/metrics"
	"github.com/modulescout/modulescout/internal/storage"
)

type buildStats struct {
	cacheHits int
	encoded   int
}

// buildEmbeddings produces one embedding row per module, in catalog order,
// and writes the matrix plus its meta sidecar. Vectors cached under an
// unchanged content hash are reused without an API call.
func buildEmbeddings(ctx context.Context, snap *catalog.Snapshot, enc encoder.Encoder, repo *storage.VectorRepository, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*buildStats, error) {
	modules := snap.Modules()
	dimensions := enc.Dimensions()
	model := enc.Model()

	rows := make([][]float32, len(modules))
	stats := &buildStats{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(encodeWorkers)

	// Per-row results land in rows[i]; the counters are only touched after
	// Wait, via the channel below.
	type outcome struct{ cached bool }
	outcomes := make(chan outcome, len(modules))

	for i, mod := range modules {
		g.Go(func() error {
			text := mod.EmbeddingText()
			hash := contentHash(text)

			if vec, ok, err := repo.Get(gctx, mod.Slug, model, hash); err != nil {
				log.WithError(err).WithField("slug", mod.Slug).Warn("Cache read failed, encoding instead")
			} else if ok {
				m.RecordCacheHit(model)
				rows[i] = vec
				outcomes <- outcome{cached: true}
				return nil
			}
			m.RecordCacheMiss(model)

			start := time.Now()
			vec, err := enc.Embed(gctx, text)
			if err != nil {
				m.RecordEncode(cfg.EmbeddingProvider, "error", time.Since(start).Seconds())
				return fmt.Errorf("encode %s: %w", mod.Slug, err)
			}
			m.RecordEncode(cfg.EmbeddingProvider, "success", time.Since(start).Seconds())

			if err := repo.Put(gctx, mod.Slug, model, hash, vec); err != nil {
				log.WithError(err).WithField("slug", mod.Slug).Warn("Cache write failed")
			}

			rows[i] = vec
			outcomes <- outcome{cached: false}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(outcomes)
	for o := range outcomes {
		if o.cached {
			stats.cacheHits++
		} else {
			stats.encoded++
		}
	}

	data := make([]float32, 0, len(modules)*dimensions)
	for i, row := range rows {
		if len(row) != dimensions {
			return nil, fmt.Errorf("module %s: vector has %d values, want %d", modules[i].Slug, len(row), dimensions)
		}
		data = append(data, row...)
	}

	meta := catalog.EmbeddingMeta{
		Model:      model,
		Dimensions: dimensions,
		BuiltAt:    time.Now().UTC(),
	}
	if err := catalog.WriteEmbeddings(cfg.EmbeddingsPath, cfg.EmbeddingsMetaPath(), data, meta); err != nil {
		return nil, err
	}
	return stats, nil
}

// contentHash keys the vector cache. Same text, same model, same vector.
func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
