// Package main provides the module match server entry point.
package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/modulescout/modulescout/internal/catalog"
	"github.com/modulescout/modulescout/internal/config"
	"github.com/modulescout/modulescout/internal/encoder"
	apperrors "github.com/modulescout/modulescout/internal/errors"
	"github.com/modulescout/modulescout/internal/logger"
	"github.com/modulescout/modulescout/internal/match"
	"github.com/modulescout/modulescout/internal/metrics"
	"github.com/modulescout/modulescout/internal/retrieval"
	"github.com/modulescout/modulescout/internal/sentry"
)

// setupRoutes configures all HTTP routes
func setupRoutes(router *gin.Engine, svc *match.Service, store *catalog.Store, enc encoder.Encoder, index *retrieval.Index, registry *prometheus.Registry, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) {
	// Liveness probe: process is up, nothing more. Never checks dependencies.
	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/healthz", healthHandler)
	router.HEAD("/healthz", healthHandler)

	// Readiness probe: a usable snapshot must be loaded.
	readyHandler := func(c *gin.Context) {
		snap := store.Snapshot()
		if snap == nil || snap.Len() == 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "catalog snapshot is empty",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "ready",
			"modules": snap.Len(),
			"search":  gin.H{
				"vector":  enc != nil && snap.Matrix().Rows() > 0,
				"keyword": index.Enabled(),
			},
		})
	}
	router.GET("/ready", readyHandler)
	router.HEAD("/ready", readyHandler)

	api := router.Group("/api")
	{
		api.POST("/match", matchHandler(svc, m, log))
		api.GET("/modules/:slug", moduleHandler(svc, m, log))
		api.GET("/modules", browseHandler(svc, m, log))
	}

	// Prometheus metrics endpoint, Basic Auth when a password is configured
	metricsHandler := gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if cfg.MetricsPassword != "" {
		authorized := router.Group("/", gin.BasicAuth(gin.Accounts{
			cfg.MetricsUsername: cfg.MetricsPassword,
		}))
		authorized.GET("/metrics", metricsHandler)
	} else {
		router.GET("/metrics", metricsHandler)
	}

	// Admin endpoints stay disabled without a password
	if cfg.AdminPassword != "" {
		admin := router.Group("/internal", gin.BasicAuth(gin.Accounts{
			cfg.AdminUsername: cfg.AdminPassword,
		}))
		admin.POST("/reload", reloadHandler(store, index, m, log))
	}
}

// matchHandler serves POST /api/match.
func matchHandler(svc *match.Service, m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req match.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			m.RecordMatch("invalid", time.Since(start).Seconds(), 0)
			m.RecordHTTPError("validation", c.FullPath())
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		ctx, cancel := contextWithTimeout(c, config.MatchProcessing)
		defer cancel()

		results, err := svc.Match(ctx, &req)
		if err != nil {
			status := respondError(c, err, m, log)
			m.RecordMatch(statusLabel(status), time.Since(start).Seconds(), 0)
			return
		}

		m.RecordMatch("success", time.Since(start).Seconds(), len(results))
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// moduleHandler serves GET /api/modules/:slug.
func moduleHandler(svc *match.Service, m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, stats, err := svc.Lookup(c.Param("slug"))
		if err != nil {
			respondError(c, err, m, log)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"module": record,
			"stats":  stats,
		})
	}
}

// browseHandler serves GET /api/modules?q= keyword title browse.
func browseHandler(svc *match.Service, m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := svc.KeywordSearch(c.Query("q"), intQuery(c, "limit"))
		if err != nil {
			respondError(c, err, m, log)
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}

// reloadHandler serves POST /internal/reload: atomic snapshot swap plus
// keyword index rebuild. A failed reload keeps the old snapshot serving.
func reloadHandler(store *catalog.Store, index *retrieval.Index, m *metrics.Metrics, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.Reload(); err != nil {
			m.RecordSnapshotReload("error")
			var integrity *apperrors.CatalogIntegrityError
			if errors.As(err, &integrity) {
				m.RecordCatalogIntegrityIssue("reload")
			}
			log.WithError(err).Error("Manual catalog reload failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed, previous snapshot kept"})
			return
		}

		snap := store.Snapshot()
		if err := index.Build(snap.Modules()); err != nil {
			log.WithError(err).Warn("Keyword index rebuild failed after reload")
		}

		m.RecordSnapshotReload("success")
		m.RecordSnapshot(snap.Len(), 0)
		log.WithField("modules", snap.Len()).Info("Manual catalog reload complete")
		c.JSON(http.StatusOK, gin.H{"status": "reloaded", "modules": snap.Len()})
	}
}

// respondError maps pipeline errors onto HTTP statuses and returns the
// status it wrote. Upstream payloads are logged, never returned.
func respondError(c *gin.Context, err error, m *metrics.Metrics, log *logger.Logger) int {
	route := c.FullPath()

	var parseErr *apperrors.UpstreamParseError

	switch {
	case errors.Is(err, apperrors.ErrInvalidInput):
		m.RecordHTTPError("validation", route)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return http.StatusBadRequest

	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, apperrors.ErrNotFound):
		m.RecordHTTPError("not_found", route)
		c.JSON(http.StatusNotFound, gin.H{"error": "module not found"})
		return http.StatusNotFound

	case errors.Is(err, apperrors.ErrEncoderUnavailable), errors.Is(err, apperrors.ErrEncoderTimeout):
		m.RecordHTTPError("encoder", route)
		log.WithError(err).Error("Encoder failure")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "semantic search temporarily unavailable"})
		return http.StatusServiceUnavailable

	case errors.As(err, &parseErr):
		m.RecordHTTPError("internal", route)
		log.WithError(err).
			WithField("source", parseErr.Source).
			WithField("raw", parseErr.Raw).
			Error("Upstream response unparseable")
		sentry.CaptureExceptionWithContext(c.Request.Context(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return http.StatusInternalServerError

	default:
		m.RecordHTTPError("internal", route)
		log.WithError(err).Error("Match pipeline error")
		sentry.CaptureExceptionWithContext(c.Request.Context(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return http.StatusInternalServerError
	}
}

func contextWithTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

func intQuery(c *gin.Context, key string) int {
	v, _ := strconv.Atoi(c.Query(key))
	return v
}

func statusLabel(httpStatus int) string {
	switch {
	case httpStatus == http.StatusBadRequest:
		return "invalid"
	case httpStatus == http.StatusServiceUnavailable:
		return "encoder_error"
	default:
		return "internal_error"
	}
}
