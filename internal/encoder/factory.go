package encoder

import (
	"fmt"

	"github.com/modulescout/modulescout/internal/config"
)

// Default models per provider, used when EMBEDDING_MODEL is unset.
const (
	DefaultGeminiModel = "gemini-embedding-001"
	DefaultOpenAIModel = "text-embedding-3-small"
)

// New builds the encoder selected by the configuration. Returns an error
// when the provider has no API key, so a misconfigured deployment fails at
// startup rather than on the first query.
func New(cfg *config.Config) (Encoder, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("encoder: GEMINI_API_KEY is required for provider %q", cfg.EmbeddingProvider)
		}
		model := cfg.EmbeddingModel
		if model == "" {
			model = DefaultGeminiModel
		}
		return NewGemini(cfg.GeminiAPIKey, model, cfg.EmbeddingDimensions, config.EncodeHTTPClient), nil

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("encoder: OPENAI_API_KEY is required for provider %q", cfg.EmbeddingProvider)
		}
		model := cfg.EmbeddingModel
		if model == "" {
			model = DefaultOpenAIModel
		}
		return NewOpenAI(cfg.OpenAIAPIKey, model, cfg.EmbeddingDimensions, config.EncodeHTTPClient), nil

	default:
		return nil, fmt.Errorf("encoder: unknown provider %q", cfg.EmbeddingProvider)
	}
}
