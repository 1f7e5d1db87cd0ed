// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrEmptyQuery indicates the match query was empty or whitespace-only.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEncoderUnavailable indicates the embedding backend could not be
	// reached or is not configured.
	ErrEncoderUnavailable = errors.New("encoder unavailable")

	// ErrEncoderTimeout indicates an embedding request exceeded its deadline.
	ErrEncoderTimeout = errors.New("encoder timed out")

	// ErrInvalidDimension indicates a query vector whose length does not
	// match the catalog embedding matrix. This is a deployment bug (encoder
	// and matrix built with different models), never a user error.
	ErrInvalidDimension = errors.New("embedding dimension mismatch")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is reports ErrInvalidInput so callers can map any validation failure
// to a 400 without knowing the field.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// CatalogIntegrityError represents malformed or mismatched catalog data
// files detected at load time. Fatal at startup.
type CatalogIntegrityError struct {
	File   string
	Reason string
}

func (e *CatalogIntegrityError) Error() string {
	return fmt.Sprintf("catalog integrity error (file=%s): %s", e.File, e.Reason)
}

// NewCatalogIntegrityError creates a new catalog integrity error.
func NewCatalogIntegrityError(file, format string, args ...any) *CatalogIntegrityError {
	return &CatalogIntegrityError{
		File:   file,
		Reason: fmt.Sprintf(format, args...),
	}
}

// UpstreamParseError represents an unparseable response from an external
// embedding or scraping backend. The raw payload is kept for diagnosis and
// must only ever be logged, never returned to the caller.
type UpstreamParseError struct {
	Source string
	Raw    string
	Err    error
}

func (e *UpstreamParseError) Error() string {
	return fmt.Sprintf("upstream parse error (source=%s): %v", e.Source, e.Err)
}

func (e *UpstreamParseError) Unwrap() error {
	return e.Err
}

// NewUpstreamParseError creates a new upstream parse error.
func NewUpstreamParseError(source, raw string, err error) *UpstreamParseError {
	return &UpstreamParseError{
		Source: source,
		Raw:    raw,
		Err:    err,
	}
}

// ScraperError represents web scraping failures with context.
type ScraperError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ScraperError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("scraper error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("scraper error (url=%s): %v", e.URL, e.Err)
}

func (e *ScraperError) Unwrap() error {
	return e.Err
}

// NewScraperError creates a new scraper error.
func NewScraperError(url string, statusCode int, err error) *ScraperError {
	return &ScraperError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}
