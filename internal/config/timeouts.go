// Package config provides centralized timeout constants for the application.
//
// These values are tuned around:
//   - Hosted embedding API latency (cold requests can take several seconds)
//   - UCL module-catalogue response times (scraping delays, rate limiting)
//   - SQLite performance characteristics (WAL mode, busy timeout)
package config

import "time"

// HTTP server timeouts
const (
	// MatchProcessing is the timeout for handling a single match request.
	// Covers validation, one embedding API round trip (with retries) and
	// the in-memory ranking/filtering, which is microseconds by comparison.
	MatchProcessing = 30 * time.Second

	// HTTPRead is the HTTP server read timeout.
	// Request bodies are small JSON documents.
	HTTPRead = 10 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// Must accommodate MatchProcessing plus response serialization.
	HTTPWrite = 35 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// Encoder timeouts
const (
	// EncodeRequest bounds a single Embed call including the backend's own
	// retry/backoff cycle. Requests exceeding this surface as encoder
	// timeouts rather than hanging the match request.
	EncodeRequest = 15 * time.Second

	// EncodeHTTPClient is the raw HTTP client timeout for one embedding
	// API attempt, below EncodeRequest so at least one retry fits.
	EncodeHTTPClient = 10 * time.Second
)

// Scraper timeouts
const (
	// ScraperRequest is the timeout for a single HTTP request to the
	// module catalogue. Pages are static but the host rate-limits.
	ScraperRequest = 30 * time.Second

	// ScraperRetryInitial is the initial delay before retrying a failed
	// request. Uses exponential backoff: 2s -> 4s -> 8s -> 16s
	ScraperRetryInitial = 2 * time.Second

	// ScraperRateLimit is the minimum delay between consecutive catalogue
	// requests, matching the polite delay the catalogue tolerates.
	ScraperRateLimit = 500 * time.Millisecond
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Handles write contention while the indexer batches vectors.
	DatabaseBusyTimeout = 30 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour
)
