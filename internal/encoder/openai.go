package encoder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	apperrors "github.com/modulescout/modulescout/internal/errors"
	"github.com/modulescout/modulescout/internal/ratelimit"
)

// openaiAPIRateLimit is the requests per minute budget for the embeddings
// endpoint on the default tier.
const openaiAPIRateLimit = 3000

// OpenAI produces embeddings via the OpenAI embeddings API. The SDK handles
// transport-level retries; this layer adds rate limiting and maps failures
// onto the encoder error taxonomy.
type OpenAI struct {
	client      openai.Client
	model       string
	dimensions  int
	rateLimiter *ratelimit.Limiter
}

// NewOpenAI creates an OpenAI encoder for the given model and output
// dimensionality.
func NewOpenAI(apiKey, model string, dimensions int, timeout time.Duration) *OpenAI {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithRequestTimeout(timeout),
	)
	return &OpenAI{
		client:      client,
		model:       model,
		dimensions:  dimensions,
		rateLimiter: ratelimit.NewPerMinute(openaiAPIRateLimit),
	}
}

// Model returns the upstream model identifier.
func (c *OpenAI) Model() string { return c.model }

// Dimensions returns the configured output dimensionality.
func (c *OpenAI) Dimensions() int { return c.dimensions }

// Embed encodes text through the embeddings endpoint.
func (c *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := checkInput(text); err != nil {
		return nil, err
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, classifyCtxErr(err)
	}

	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(c.dimensions)),
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("openai embeddings: %v: %w", err, apperrors.ErrEncoderTimeout)
		}
		return nil, fmt.Errorf("openai embeddings: %v: %w", err, apperrors.ErrEncoderUnavailable)
	}

	if len(resp.Data) == 0 {
		return nil, &apperrors.UpstreamParseError{
			Source: "openai",
			Raw:    resp.RawJSON(),
			Err:    errors.New("response carries no embedding data"),
		}
	}

	raw := resp.Data[0].Embedding
	if err := checkDimensions(len(raw), c.dimensions); err != nil {
		return nil, err
	}
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}
