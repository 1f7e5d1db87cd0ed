// Package main provides the module match server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/modulescout/modulescout/internal/buildinfo"
	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/config"
	"github.com/modulescout/modulescout/internal/encoder"
	"github.com/modulescout/modulescout/internal/logger"
	"github.com/modulescout/modulescout/internal/match"
	"github.com/modulescout/modulescout/internal/metrics"
	"github.com/modulescout/modulescout/internal/r2client"
	"github.com/modulescout/modulescout/internal/retrieval"
	"github.com/modulescout/modulescout/internal/sentry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithOptions(cfg.LogLevel, logger.Options{
		BetterstackToken:    cfg.LogsToken,
		BetterstackEndpoint: cfg.LogsEndpoint,
	})
	log.WithField("version", buildinfo.Version).Info("Starting module match server")

	// Error tracking (no-op without a token)
	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.Environment,
		Release:     buildinfo.Version,
	}); err != nil {
		log.WithError(err).Warn("Failed to initialize Sentry, error tracking disabled")
	}
	defer sentry.Flush(2 * time.Second)

	// Prometheus registry with runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registry.MustRegister(collectors.NewBuildInfoCollector())
	m := metrics.New(registry)

	// Catalog snapshot: malformed data files are fatal at startup,
	// serving wrong results is worse than not starting.
	paths := catalog.Paths{
		Catalog:        cfg.CatalogPath,
		Stats:          cfg.StatsPath,
		Embeddings:     cfg.EmbeddingsPath,
		EmbeddingsMeta: cfg.EmbeddingsMetaPath(),
	}
	// A fresh instance with object storage configured bootstraps from the
	// latest published artifact set.
	if cfg.HasObjectStore() {
		if _, statErr := os.Stat(paths.Catalog); os.IsNotExist(statErr) {
			if err := fetchArtifacts(cfg, paths, log); err != nil {
				log.WithError(err).Fatal("Failed to fetch artifacts")
			}
		}
	}

	store, err := catalog.NewStore(paths)
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}
	snap := store.Snapshot()
	m.RecordSnapshot(snap.Len(), 0)
	log.WithFields(map[string]any{
		"modules":    snap.Len(),
		"matrix":     snap.Matrix().Rows(),
		"dimensions": snap.Meta().Dimensions,
	}).Info("Catalog loaded")

	// Embedding encoder (optional, keyword-only search without it)
	var enc encoder.Encoder
	if cfg.HasEncoder() {
		enc, err = encoder.New(cfg)
		if err != nil {
			log.WithError(err).Fatal("Failed to create encoder")
		}
		log.WithFields(map[string]any{
			"provider": cfg.EmbeddingProvider,
			"model":    enc.Model(),
		}).Info("Encoder created")
	} else {
		log.Info("No embedding API key configured, semantic search disabled")
	}

	// Keyword index over the active snapshot
	index := retrieval.NewIndex(log)
	if err := index.Build(snap.Modules()); err != nil {
		log.WithError(err).Warn("Failed to build keyword index, keyword search disabled")
	} else {
		log.WithField("documents", index.Count()).Info("Keyword index built")
	}

	vectorSource := match.NewVectorSource(store, enc, cfg.EncodeTimeout)
	hybrid := retrieval.NewHybrid(vectorSource, index, cfg.BM25Weight, log)
	svc := match.NewService(store, hybrid, cfg.DefaultTopK, cfg.MaxTopK, log)
	log.WithFields(map[string]any{
		"vector_enabled": vectorSource.Enabled(),
		"bm25_weight":    cfg.BM25Weight,
	}).Info("Match service created")

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(log))

	setupRoutes(router, svc, store, enc, index, registry, cfg, m, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  config.HTTPRead,
		WriteTimeout: config.HTTPWrite,
		IdleTimeout:  config.HTTPIdle,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup

	// Periodic catalog reload
	if cfg.ReloadInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithField("panic", r).Error("Panic in catalog reload goroutine")
				}
			}()
			reloadCatalog(ctx, store, index, m, cfg.ReloadInterval, log)
		}()
	}

	// Snapshot gauge updater
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("Panic in snapshot metrics goroutine")
			}
		}()
		updateSnapshotMetrics(ctx, store, m)
	}()

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	cancel()

	goDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(goDone)
	}()

	select {
	case <-goDone:
		log.Info("All background goroutines stopped")
	case <-time.After(5 * time.Second):
		log.Warn("Timeout waiting for goroutines to stop")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

// fetchArtifacts downloads the published artifact set into the data
// directory so the instance can serve without a local indexer run.
func fetchArtifacts(cfg *config.Config, paths catalog.Paths, log *logger.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2Endpoint,
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretKey,
		BucketName:  cfg.R2Bucket,
	})
	if err != nil {
		return err
	}

	manifest, err := r2client.FetchArtifacts(ctx, client, r2client.DefaultArtifactPrefix, paths)
	if err != nil {
		return err
	}
	log.WithFields(map[string]any{
		"modules": manifest.Modules,
		"model":   manifest.Model,
	}).Info("Artifacts fetched from object storage")
	return nil
}
