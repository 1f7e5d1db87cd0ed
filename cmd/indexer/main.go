// Offline indexer: scrapes or loads the module catalogue, encodes every
// module's text into an embedding row, and writes the matrix artifacts the
// server loads at startup. Cached vectors are reused when the module text
// has not changed. Optionally publishes the artifact set to object storage.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/config"
	"github.com/modulescout/modulescout/internal/encoder"
	"github.com/modulescout/modulescout/internal/logger"
	"github.com/modulescout/modulescout/internal/metrics"
	"github.com/modulescout/modulescout/internal/r2client"
	"github.com/modulescout/modulescout/internal/storage"
)

const (
	// encodeWorkers bounds concurrent embedding API calls. The encoder's own
	// rate limiter paces requests; this just caps in-flight work.
	encodeWorkers = 4

	buildLockKey = "locks/index-build"
	buildLockTTL = 30 * time.Minute
)

func main() {
	slugsFile := flag.String("slugs", "", "file of module slugs to scrape, one per line (skips scraping when empty)")
	prune := flag.Bool("prune", false, "drop cached vectors for modules no longer in the catalog")
	publish := flag.Bool("publish", false, "publish artifacts to object storage after a successful build")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel).WithComponent("indexer")
	log.Info("Starting catalogue indexer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	if *slugsFile != "" {
		if err := scrapeCatalog(ctx, cfg, *slugsFile, m, log); err != nil {
			log.WithError(err).Fatal("Catalogue scrape failed")
		}
	}

	// Stats only; the embedding pair is what this run produces.
	snap, err := catalog.Load(catalog.Paths{
		Catalog: cfg.CatalogPath,
		Stats:   cfg.StatsPath,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}
	log.WithField("modules", snap.Len()).Info("Catalog loaded")

	if snap.Len() == 0 {
		log.Info("Catalog is empty, nothing to encode")
		return
	}

	enc, err := encoder.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("Failed to create encoder")
	}
	log.WithFields(map[string]any{
		"model":      enc.Model(),
		"dimensions": enc.Dimensions(),
	}).Info("Encoder created")

	db, err := storage.New(cfg.SQLitePath())
	if err != nil {
		log.WithError(err).Fatal("Failed to open embedding cache")
	}
	defer func() { _ = db.Close() }()
	repo := storage.NewVectorRepository(db)

	stats, err := buildEmbeddings(ctx, snap, enc, repo, cfg, m, log)
	if err != nil {
		log.WithError(err).Fatal("Embedding build failed")
	}
	buildFields := map[string]any{
		"modules":   snap.Len(),
		"cache_hit": stats.cacheHits,
		"encoded":   stats.encoded,
	}
	if cached, err := repo.Count(ctx, enc.Model()); err == nil {
		buildFields["cache_size"] = cached
	}
	log.WithFields(buildFields).Info("Embedding matrix written")

	if *prune {
		keep := make(map[string]bool, snap.Len())
		for _, mod := range snap.Modules() {
			keep[mod.Slug] = true
		}
		pruned, err := repo.Prune(ctx, enc.Model(), keep)
		if err != nil {
			log.WithError(err).Warn("Cache prune failed")
		} else {
			log.WithField("pruned", pruned).Info("Cache pruned")
		}
	}

	if *publish {
		if !cfg.HasObjectStore() {
			log.Warn("Publish requested but object storage is not configured")
			return
		}
		if err := publishArtifacts(ctx, cfg, snap, enc.Model(), enc.Dimensions(), log); err != nil {
			log.WithError(err).Fatal("Artifact publish failed")
		}
	}

	log.Info("Indexer finished")
}

// publishArtifacts uploads the artifact set under the build lock so two
// indexer runs never interleave a publish.
func publishArtifacts(ctx context.Context, cfg *config.Config, snap *catalog.Snapshot, model string, dimensions int, log *logger.Logger) error {
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretKey,
		BucketName:  cfg.R2Bucket,
	})
	if err != nil {
		return err
	}

	lock := r2client.NewBuildLock(client, buildLockKey, buildLockTTL)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("another indexer holds the build lock")
	}
	log.WithField("lock_owner", lock.OwnerID()).Info("Build lock acquired")
	defer func() {
		if err := lock.Release(ctx); err != nil {
			log.WithError(err).Warn("Failed to release build lock")
		}
	}()

	// Slow uploads can outlast the TTL; keep the lock fresh while publishing.
	renewCtx, stopRenew := context.WithCancel(ctx)
	defer stopRenew()
	go func() {
		ticker := time.NewTicker(buildLockTTL / 3)
		defer ticker.Stop()
		for {
			select {
			case <-renewCtx.Done():
				return
			case <-ticker.C:
				if renewed, err := lock.Renew(renewCtx); err != nil {
					log.WithError(err).Warn("Build lock renewal failed")
				} else if !renewed {
					log.Warn("Build lock no longer held, publish may race another indexer")
				}
			}
		}
	}()

	paths := catalog.Paths{
		Catalog:        cfg.CatalogPath,
		Stats:          cfg.StatsPath,
		Embeddings:     cfg.EmbeddingsPath,
		EmbeddingsMeta: cfg.EmbeddingsMetaPath(),
	}
	manifest := r2client.Manifest{
		Modules:     snap.Len(),
		Model:       model,
		Dimensions:  dimensions,
		PublishedAt: time.Now().UTC(),
	}

	if err := r2client.PublishArtifacts(ctx, client, r2client.DefaultArtifactPrefix, paths, manifest); err != nil {
		return err
	}
	log.WithField("prefix", r2client.DefaultArtifactPrefix).Info("Artifacts published")
	return nil
}
