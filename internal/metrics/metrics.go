// Package metrics defines the Prometheus metrics for the match service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Match pipeline metrics
	MatchRequestsTotal   *prometheus.CounterVec
	MatchDurationSeconds prometheus.Histogram
	MatchResultCount     prometheus.Histogram

	// Encoder metrics
	EncodeRequestsTotal   *prometheus.CounterVec
	EncodeDurationSeconds *prometheus.HistogramVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Catalog snapshot metrics
	SnapshotModules    prometheus.Gauge
	SnapshotReloads    *prometheus.CounterVec
	SnapshotAgeSeconds prometheus.Gauge

	// Data integrity metrics
	CatalogIntegrityIssues *prometheus.CounterVec

	// Scraper metrics (exported by the indexer)
	ScraperRequestsTotal   *prometheus.CounterVec
	ScraperDurationSeconds *prometheus.HistogramVec

	// Embedding cache metrics (exported by the indexer)
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		MatchRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_match_requests_total",
				Help: "Total match requests by outcome",
			},
			[]string{"status"}, // status: success, invalid, encoder_error, internal_error
		),

		MatchDurationSeconds: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modulescout_match_duration_seconds",
				Help:    "End-to-end match request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}, // Dominated by the encode round trip
			},
		),

		MatchResultCount: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modulescout_match_result_count",
				Help:    "Number of results returned per match request",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 40},
			},
		),

		EncodeRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_encode_requests_total",
				Help: "Total embedding API requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error, timeout
		),

		EncodeDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modulescout_encode_duration_seconds",
				Help:    "Embedding API request duration in seconds by provider",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"provider"},
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_http_errors_total",
				Help: "Total HTTP errors by type and route",
			},
			[]string{"error_type", "route"}, // error_type: validation, not_found, encoder, internal
		),

		SnapshotModules: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "modulescout_snapshot_modules",
				Help: "Number of modules in the active catalog snapshot",
			},
		),

		SnapshotReloads: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_snapshot_reloads_total",
				Help: "Total catalog snapshot reloads by status",
			},
			[]string{"status"}, // status: success, error
		),

		SnapshotAgeSeconds: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "modulescout_snapshot_age_seconds",
				Help: "Age of the active catalog snapshot",
			},
		),

		CatalogIntegrityIssues: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_catalog_integrity_issues_total",
				Help: "Total catalog data integrity issues detected",
			},
			[]string{"issue_type"}, // issue_type: reload (integrity failure on a snapshot reload)
		),

		ScraperRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_scraper_requests_total",
				Help: "Total catalogue scraper requests by status",
			},
			[]string{"status"}, // status: success, error, timeout, not_found
		),

		ScraperDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modulescout_scraper_duration_seconds",
				Help:    "Catalogue scraper request duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"page"}, // page: index, module
		),

		CacheHitsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_embedding_cache_hits_total",
				Help: "Total embedding cache hits by model",
			},
			[]string{"model"},
		),

		CacheMissesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "modulescout_embedding_cache_misses_total",
				Help: "Total embedding cache misses by model",
			},
			[]string{"model"},
		),
	}

	return m
}

// RecordMatch records one match request with its outcome
func (m *Metrics) RecordMatch(status string, duration float64, results int) {
	m.MatchRequestsTotal.WithLabelValues(status).Inc()
	m.MatchDurationSeconds.Observe(duration)
	if status == "success" {
		m.MatchResultCount.Observe(float64(results))
	}
}

// RecordEncode records an embedding API request
func (m *Metrics) RecordEncode(provider, status string, duration float64) {
	m.EncodeRequestsTotal.WithLabelValues(provider, status).Inc()
	m.EncodeDurationSeconds.WithLabelValues(provider).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, route string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, route).Inc()
}

// RecordSnapshot records the state of the active snapshot
func (m *Metrics) RecordSnapshot(modules int, ageSeconds float64) {
	m.SnapshotModules.Set(float64(modules))
	m.SnapshotAgeSeconds.Set(ageSeconds)
}

// RecordSnapshotReload records a reload attempt
func (m *Metrics) RecordSnapshotReload(status string) {
	m.SnapshotReloads.WithLabelValues(status).Inc()
}

// RecordCatalogIntegrityIssue records a catalog data integrity issue
func (m *Metrics) RecordCatalogIntegrityIssue(issueType string) {
	m.CatalogIntegrityIssues.WithLabelValues(issueType).Inc()
}

// RecordScraperRequest records a scraper request with status
func (m *Metrics) RecordScraperRequest(page, status string, duration float64) {
	m.ScraperRequestsTotal.WithLabelValues(status).Inc()
	m.ScraperDurationSeconds.WithLabelValues(page).Observe(duration)
}

// RecordCacheHit records an embedding cache hit
func (m *Metrics) RecordCacheHit(model string) {
	m.CacheHitsTotal.WithLabelValues(model).Inc()
}

// RecordCacheMiss records an embedding cache miss
func (m *Metrics) RecordCacheMiss(model string) {
	m.CacheMissesTotal.WithLabelValues(model).Inc()
}
