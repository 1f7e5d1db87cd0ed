package logger

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler duplicates every record to a set of destination handlers,
// letting stdout and Better Stack receive the same stream. Records are
// cloned per destination because slog.Record is single-consumer.
type MultiHandler struct {
	targets []slog.Handler
}

// NewMultiHandler builds a MultiHandler over the given destinations.
// Nil entries are dropped so optional destinations can be passed directly.
func NewMultiHandler(targets ...slog.Handler) *MultiHandler {
	kept := make([]slog.Handler, 0, len(targets))
	for _, t := range targets {
		if t != nil {
			kept = append(kept, t)
		}
	}
	return &MultiHandler{targets: kept}
}

// Enabled is true when at least one destination accepts the level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, t := range h.targets {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every destination that accepts its level.
// One failing destination does not stop delivery to the others; the
// failures come back joined.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var failed []error
	for _, t := range h.targets {
		if !t.Enabled(ctx, r.Level) {
			continue
		}
		if err := t.Handle(ctx, r.Clone()); err != nil {
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}

// WithAttrs applies the attributes to every destination.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.targets))
	for i, t := range h.targets {
		next[i] = t.WithAttrs(attrs)
	}
	return &MultiHandler{targets: next}
}

// WithGroup applies the group to every destination.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.targets))
	for i, t := range h.targets {
		next[i] = t.WithGroup(name)
	}
	return &MultiHandler{targets: next}
}
