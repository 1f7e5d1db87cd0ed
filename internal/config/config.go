// Package config provides application configuration management.
// It loads settings from environment variables and provides defaults for
// the server, the embedding encoder, retrieval tuning, and data paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Encoder provider names accepted by EMBEDDING_PROVIDER.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds all application configuration
type Config struct {
	// Server Configuration
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	// Data Configuration
	DataDir        string // Directory holding catalog, stats, embeddings and the SQLite cache
	CatalogPath    string // Module catalog JSON (default: <DataDir>/modules.json)
	StatsPath      string // Optional grade statistics JSON (default: <DataDir>/stats.json)
	EmbeddingsPath string // Optional precomputed embedding matrix (default: <DataDir>/embeddings.f32)

	// Encoder Configuration
	EmbeddingProvider   string        // "gemini" or "openai"
	GeminiAPIKey        string        // Gemini API key for the embedding backend
	OpenAIAPIKey        string        // OpenAI API key (alternative embedding backend)
	EmbeddingModel      string        // Model override (empty = provider default)
	EmbeddingDimensions int           // Output dimensionality (default: 768)
	EncodeTimeout       time.Duration // Per-request bound on Embed calls

	// Retrieval Configuration
	DefaultTopK int     // Results returned when the request doesn't specify k
	MaxTopK     int     // Upper bound on requested k
	BM25Weight  float64 // Keyword weight in RRF fusion (vector weight = 1 - BM25Weight)

	// Catalog reload
	ReloadInterval time.Duration // How often the reload job checks the catalog file (0 = disabled)

	// Metrics / admin authentication
	MetricsUsername string // Username for /metrics Basic Auth (default: "prometheus")
	MetricsPassword string // Password for /metrics Basic Auth (empty = no auth)
	AdminUsername   string // Username for /internal endpoints Basic Auth (default: "admin")
	AdminPassword   string // Password for /internal endpoints (empty = endpoints disabled)

	// Observability
	SentryToken   string // Better Stack Errors token (empty = disabled)
	SentryHost    string // Better Stack Errors ingesting host
	LogsToken     string // Better Stack Logs token (empty = stdout only)
	LogsEndpoint  string // Better Stack Logs endpoint override
	Environment   string // Deployment environment label (default: "production")

	// Scraper Configuration (used by the indexer)
	ScraperTimeout    time.Duration
	ScraperMaxRetries int
	CatalogBaseURL    string // Module catalogue base URL

	// Object storage (optional snapshot distribution)
	R2Endpoint    string
	R2AccessKeyID string
	R2SecretKey   string
	R2Bucket      string
}

// Load reads configuration from environment variables
// It attempts to load .env file first, then reads from env vars
func Load() (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "./data")

	cfg := &Config{
		// Server Configuration
		Port:            getEnv("PORT", "10000"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Data Configuration
		DataDir:        dataDir,
		CatalogPath:    getEnv("CATALOG_PATH", filepath.Join(dataDir, "modules.json")),
		StatsPath:      getEnv("STATS_PATH", filepath.Join(dataDir, "stats.json")),
		EmbeddingsPath: getEnv("EMBEDDINGS_PATH", filepath.Join(dataDir, "embeddings.f32")),

		// Encoder Configuration
		EmbeddingProvider:   getEnv("EMBEDDING_PROVIDER", ProviderGemini),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:        getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", ""),
		EmbeddingDimensions: getIntEnv("EMBEDDING_DIMENSIONS", 768),
		EncodeTimeout:       getDurationEnv("ENCODE_TIMEOUT", EncodeRequest),

		// Retrieval Configuration
		DefaultTopK: getIntEnv("DEFAULT_TOP_K", 10),
		MaxTopK:     getIntEnv("MAX_TOP_K", 40),
		BM25Weight:  getFloatEnv("BM25_WEIGHT", 0.4),

		// Catalog reload
		ReloadInterval: getDurationEnv("RELOAD_INTERVAL", 15*time.Minute),

		// Metrics / admin authentication
		MetricsUsername: getEnv("METRICS_USERNAME", "prometheus"),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", ""),

		// Observability
		SentryToken:  getEnv("SENTRY_TOKEN", ""),
		SentryHost:   getEnv("SENTRY_HOST", "errors.betterstack.com"),
		LogsToken:    getEnv("LOGS_TOKEN", ""),
		LogsEndpoint: getEnv("LOGS_ENDPOINT", ""),
		Environment:  getEnv("ENVIRONMENT", "production"),

		// Scraper Configuration
		ScraperTimeout:    getDurationEnv("SCRAPER_TIMEOUT", ScraperRequest),
		ScraperMaxRetries: getIntEnv("SCRAPER_MAX_RETRIES", 5),
		CatalogBaseURL:    getEnv("CATALOG_BASE_URL", "https://www.ucl.ac.uk/module-catalogue/modules/"),

		// Object storage
		R2Endpoint:    getEnv("R2_ENDPOINT", ""),
		R2AccessKeyID: getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2Bucket:      getEnv("R2_BUCKET", ""),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if required configuration values are set
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("DATA_DIR is required"))
	}
	if c.EmbeddingProvider != ProviderGemini && c.EmbeddingProvider != ProviderOpenAI {
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be %q or %q, got %q",
			ProviderGemini, ProviderOpenAI, c.EmbeddingProvider))
	}
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.EmbeddingDimensions))
	}
	if c.EncodeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ENCODE_TIMEOUT must be positive, got %v", c.EncodeTimeout))
	}
	if c.DefaultTopK <= 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_TOP_K must be positive, got %d", c.DefaultTopK))
	}
	if c.MaxTopK < c.DefaultTopK {
		errs = append(errs, fmt.Errorf("MAX_TOP_K (%d) must be >= DEFAULT_TOP_K (%d)", c.MaxTopK, c.DefaultTopK))
	}
	if c.BM25Weight < 0 || c.BM25Weight > 1 {
		errs = append(errs, fmt.Errorf("BM25_WEIGHT must be in [0,1], got %v", c.BM25Weight))
	}
	if c.ScraperTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_TIMEOUT must be positive, got %v", c.ScraperTimeout))
	}
	if c.ScraperMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("SCRAPER_MAX_RETRIES cannot be negative, got %d", c.ScraperMaxRetries))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EncoderAPIKey returns the API key for the configured embedding provider.
func (c *Config) EncoderAPIKey() string {
	if c.EmbeddingProvider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// HasEncoder returns true if an embedding backend is configured.
func (c *Config) HasEncoder() bool {
	return c.EncoderAPIKey() != ""
}

// HasObjectStore returns true if all R2 settings are present.
func (c *Config) HasObjectStore() bool {
	return c.R2Endpoint != "" && c.R2AccessKeyID != "" && c.R2SecretKey != "" && c.R2Bucket != ""
}

// SQLitePath returns the full path to the SQLite embedding cache.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "cache.db")
}

// EmbeddingsMetaPath returns the JSON sidecar describing the embedding matrix.
func (c *Config) EmbeddingsMetaPath() string {
	return c.EmbeddingsPath + ".json"
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv retrieves integer environment variable with fallback to default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
