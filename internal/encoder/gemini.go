package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/modulescout/modulescout/internal/errors"
	"github.com/modulescout/modulescout/internal/ratelimit"
)

const (
	// geminiAPIBaseURL is the base URL for the Gemini embedding API
	geminiAPIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

	// geminiAPIRateLimit is the requests per minute budget for the
	// embedding endpoint
	geminiAPIRateLimit = 1000

	// Retry configuration for transient upstream errors
	defaultMaxRetries    = 5
	defaultInitialDelay  = 2 * time.Second
	defaultBackoffFactor = 2.0
	defaultJitterFactor  = 0.25
)

// Gemini calls the Gemini embedding API over raw HTTP with retry,
// exponential backoff with jitter, and client-side rate limiting.
type Gemini struct {
	apiKey       string
	model        string
	dimensions   int
	baseURL      string
	httpClient   *http.Client
	rateLimiter  *ratelimit.Limiter
	maxRetries   int
	initialDelay time.Duration
}

// NewGemini creates a Gemini encoder for the given model and output
// dimensionality.
func NewGemini(apiKey, model string, dimensions int, timeout time.Duration) *Gemini {
	return &Gemini{
		apiKey:       apiKey,
		model:        model,
		dimensions:   dimensions,
		baseURL:      geminiAPIBaseURL,
		httpClient:   &http.Client{Timeout: timeout},
		rateLimiter:  ratelimit.NewPerMinute(geminiAPIRateLimit),
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
	}
}

type geminiRequest struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Model returns the upstream model identifier.
func (c *Gemini) Model() string { return c.model }

// Dimensions returns the configured output dimensionality.
func (c *Gemini) Dimensions() int { return c.dimensions }

// Embed encodes text, retrying transient failures (429, 5xx, network
// errors) with exponential backoff and jitter. Exhausted retries surface as
// ErrEncoderUnavailable; a context deadline as ErrEncoderTimeout.
func (c *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("gemini API key not configured: %w", apperrors.ErrEncoderUnavailable)
	}
	if err := checkInput(text); err != nil {
		return nil, err
	}

	var lastErr error
	delay := c.initialDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, classifyCtxErr(err)
		}

		result, retryable, err := c.embedOnce(ctx, text)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, classifyCtxErr(ctxErr)
		}

		lastErr = err
		if !retryable {
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return nil, classifyCtxErr(ctx.Err())
		case <-time.After(applyJitter(delay)):
		}
		delay = time.Duration(float64(delay) * defaultBackoffFactor)
	}

	return nil, fmt.Errorf("max retries exceeded: %v: %w", lastErr, apperrors.ErrEncoderUnavailable)
}

// embedOnce performs a single embedding request.
// Returns (result, retryable, error).
func (c *Gemini) embedOnce(ctx context.Context, text string) ([]float32, bool, error) {
	url := fmt.Sprintf("%s/%s:embedContent?key=%s", c.baseURL, c.model, c.apiKey)

	reqBody := geminiRequest{
		Model:                fmt.Sprintf("models/%s", c.model),
		Content:              geminiContent{Parts: []geminiPart{{Text: text}}},
		OutputDimensionality: c.dimensions,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors are retryable
		return nil, true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("HTTP %d: server error or rate limited", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	var embeddingResp geminiResponse
	if err := json.Unmarshal(raw, &embeddingResp); err != nil {
		return nil, false, &apperrors.UpstreamParseError{Source: "gemini", Raw: string(raw), Err: err}
	}

	if embeddingResp.Error != nil {
		retryable := embeddingResp.Error.Code == http.StatusTooManyRequests ||
			embeddingResp.Error.Status == "RESOURCE_EXHAUSTED" ||
			embeddingResp.Error.Code >= 500

		return nil, retryable, fmt.Errorf("API error %d: %s - %s",
			embeddingResp.Error.Code,
			embeddingResp.Error.Status,
			embeddingResp.Error.Message)
	}

	values := embeddingResp.Embedding.Values
	if len(values) == 0 {
		return nil, false, &apperrors.UpstreamParseError{
			Source: "gemini",
			Raw:    string(raw),
			Err:    errors.New("response carries no embedding values"),
		}
	}
	if err := checkDimensions(len(values), c.dimensions); err != nil {
		return nil, false, err
	}
	return values, false, nil
}

// classifyCtxErr maps a context error to the encoder error taxonomy.
func classifyCtxErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, apperrors.ErrEncoderTimeout)
	}
	return err
}

// applyJitter perturbs a delay by up to ±25%.
func applyJitter(delay time.Duration) time.Duration {
	jitter := float64(time.Now().UnixNano()%1000) / 1000.0
	jitter = (jitter - 0.5) * 2 * defaultJitterFactor
	return time.Duration(float64(delay) * (1 + jitter))
}
