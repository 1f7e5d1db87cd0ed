package encoder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/modulescout/modulescout/internal/errors"
)

func testGemini(t *testing.T, handler http.Handler) *Gemini {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := NewGemini("test-key", "gemini-embedding-001", 3, 5*time.Second)
	c.baseURL = server.URL
	c.initialDelay = time.Millisecond
	return c
}

func embeddingHandler(values []float32) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": map[string]any{"values": values},
		})
	})
}

func TestGemini_Embed(t *testing.T) {
	c := testGemini(t, embeddingHandler([]float32{0.1, 0.2, 0.3}))

	vec, err := c.Embed(context.Background(), "organic chemistry with labs")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("len = %d, want 3", len(vec))
	}
	if vec[0] != 0.1 {
		t.Errorf("vec[0] = %f, want 0.1", vec[0])
	}
}

func TestGemini_Embed_EmptyInput(t *testing.T) {
	c := testGemini(t, embeddingHandler([]float32{1, 2, 3}))

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := c.Embed(context.Background(), text)
		if !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("Embed(%q) error = %v, want ErrInvalidInput", text, err)
		}
	}
}

func TestGemini_Embed_NoAPIKey(t *testing.T) {
	c := NewGemini("", "gemini-embedding-001", 3, time.Second)

	_, err := c.Embed(context.Background(), "anything")
	if !errors.Is(err, apperrors.ErrEncoderUnavailable) {
		t.Errorf("Embed() error = %v, want ErrEncoderUnavailable", err)
	}
}

func TestGemini_Embed_RetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	c := testGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		embeddingHandler([]float32{1, 0, 0}).ServeHTTP(w, r)
	}))

	vec, err := c.Embed(context.Background(), "thermodynamics")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("len = %d, want 3", len(vec))
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3", got)
	}
}

func TestGemini_Embed_UnavailableAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := testGemini(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	c.maxRetries = 2

	_, err := c.Embed(context.Background(), "quantum mechanics")
	if !errors.Is(err, apperrors.ErrEncoderUnavailable) {
		t.Fatalf("Embed() error = %v, want ErrEncoderUnavailable", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want maxRetries+1 = 3", got)
	}
}

func TestGemini_Embed_NonRetryableAPIError(t *testing.T) {
	var calls atomic.Int32
	c := testGemini(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "status": "INVALID_ARGUMENT", "message": "bad request"}}`))
	}))

	_, err := c.Embed(context.Background(), "astrophysics")
	if err == nil {
		t.Fatal("Embed() = nil error for API error")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (no retry on 400)", got)
	}
}

func TestGemini_Embed_MalformedPayload(t *testing.T) {
	secret := `{"internal": "do not leak`
	c := testGemini(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(secret))
	}))

	_, err := c.Embed(context.Background(), "linear algebra")
	var parseErr *apperrors.UpstreamParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Embed() error = %v, want UpstreamParseError", err)
	}
	if parseErr.Raw != secret {
		t.Errorf("Raw = %q, want captured payload", parseErr.Raw)
	}
	// The message a caller might forward must never carry the payload.
	if strings.Contains(err.Error(), "do not leak") {
		t.Errorf("Error() leaks the raw payload: %q", err.Error())
	}
}

func TestGemini_Embed_EmptyEmbedding(t *testing.T) {
	c := testGemini(t, embeddingHandler(nil))

	_, err := c.Embed(context.Background(), "microeconomics")
	var parseErr *apperrors.UpstreamParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Embed() error = %v, want UpstreamParseError", err)
	}
}

func TestGemini_Embed_DimensionMismatch(t *testing.T) {
	c := testGemini(t, embeddingHandler([]float32{1, 2})) // declared 3

	_, err := c.Embed(context.Background(), "number theory")
	if !errors.Is(err, apperrors.ErrInvalidDimension) {
		t.Errorf("Embed() error = %v, want ErrInvalidDimension", err)
	}
}

func TestGemini_Embed_Timeout(t *testing.T) {
	c := testGemini(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
		embeddingHandler([]float32{1, 0, 0}).ServeHTTP(w, r)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Embed(ctx, "philosophy of mind")
	if !errors.Is(err, apperrors.ErrEncoderTimeout) {
		t.Errorf("Embed() error = %v, want ErrEncoderTimeout", err)
	}
}
