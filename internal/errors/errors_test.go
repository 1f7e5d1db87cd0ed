package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("query", "must not be empty")

	if err.Field != "query" {
		t.Errorf("Field = %q, want %q", err.Field, "query")
	}
	if !strings.Contains(err.Error(), "query") {
		t.Errorf("Error() = %q, want it to mention the field", err.Error())
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}

func TestCatalogIntegrityError(t *testing.T) {
	err := NewCatalogIntegrityError("modules.json", "embedding rows %d != catalog size %d", 10, 17)

	if err.File != "modules.json" {
		t.Errorf("File = %q, want %q", err.File, "modules.json")
	}
	want := "embedding rows 10 != catalog size 17"
	if err.Reason != want {
		t.Errorf("Reason = %q, want %q", err.Reason, want)
	}
	if !strings.Contains(err.Error(), "modules.json") {
		t.Errorf("Error() = %q, want it to mention the file", err.Error())
	}
}

func TestUpstreamParseError(t *testing.T) {
	cause := errors.New("unexpected token")
	err := NewUpstreamParseError("gemini", `{"bad":`, cause)

	if !errors.Is(err, cause) {
		t.Error("UpstreamParseError should unwrap to its cause")
	}
	if err.Raw != `{"bad":` {
		t.Errorf("Raw = %q, want raw payload preserved", err.Raw)
	}
	if strings.Contains(err.Error(), err.Raw) {
		t.Error("Error() must not leak the raw upstream payload")
	}
}

func TestScraperError(t *testing.T) {
	cause := errors.New("connection refused")

	err := NewScraperError("https://example.com/modules/x", 503, cause)
	if !strings.Contains(err.Error(), "status=503") {
		t.Errorf("Error() = %q, want status included", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("ScraperError should unwrap to its cause")
	}

	noStatus := NewScraperError("https://example.com", 0, cause)
	if strings.Contains(noStatus.Error(), "status=") {
		t.Errorf("Error() = %q, want no status when zero", noStatus.Error())
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrEmptyQuery,
		ErrInvalidInput,
		ErrEncoderUnavailable,
		ErrEncoderTimeout,
		ErrInvalidDimension,
		ErrRateLimitExceeded,
	}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v unexpectedly matches %v", a, b)
			}
		}
	}
}

func TestSentinelWrapping(t *testing.T) {
	wrapped := fmt.Errorf("embed query: %w", ErrEncoderTimeout)
	if !errors.Is(wrapped, ErrEncoderTimeout) {
		t.Error("wrapped sentinel should still match with errors.Is")
	}
}
