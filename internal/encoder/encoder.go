// Package encoder turns free text into embedding vectors via an external
// embedding API. Implementations classify failures so the query path can
// answer with the right status: timeouts and exhausted retries are
// ErrEncoderTimeout / ErrEncoderUnavailable, malformed upstream payloads are
// an UpstreamParseError carrying the raw body for the log only.
package encoder

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/modulescout/modulescout/internal/errors"
)

// Encoder produces embedding vectors for text.
type Encoder interface {
	// Embed encodes the given text. The returned vector has Dimensions()
	// entries.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector size this encoder produces.
	Dimensions() int
	// Model returns the upstream model identifier, for logging and the
	// embedding meta sidecar.
	Model() string
}

// checkInput rejects empty or whitespace-only text. Callers validate user
// input before encoding; hitting this means a caller bug, not a user error.
func checkInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("cannot embed empty text: %w", apperrors.ErrInvalidInput)
	}
	return nil
}

// checkDimensions verifies the upstream vector has the declared size.
func checkDimensions(got, want int) error {
	if got != want {
		return fmt.Errorf("upstream returned %d dimensions, expected %d: %w",
			got, want, apperrors.ErrInvalidDimension)
	}
	return nil
}
