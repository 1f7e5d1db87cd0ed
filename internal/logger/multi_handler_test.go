package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestMultiHandler_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&a, nil),
		slog.NewJSONHandler(&b, nil),
	)
	log := slog.New(h)

	log.Info("both sides")

	if !strings.Contains(a.String(), "both sides") {
		t.Error("first handler missed the record")
	}
	if !strings.Contains(b.String(), "both sides") {
		t.Error("second handler missed the record")
	}
}

func TestMultiHandler_SkipsNil(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(nil, slog.NewJSONHandler(&buf, nil), nil)

	slog.New(h).Info("survives nils")

	if !strings.Contains(buf.String(), "survives nils") {
		t.Error("record lost when nil handlers present")
	}
}

func TestMultiHandler_RespectsLevels(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewJSONHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Enabled should be true when any handler accepts the level")
	}

	slog.New(h).Debug("debug only")

	if !strings.Contains(debugBuf.String(), "debug only") {
		t.Error("debug handler missed the record")
	}
	if errorBuf.Len() != 0 {
		t.Error("error handler should not receive debug records")
	}
}

func TestMultiHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewJSONHandler(&buf, nil)).
		WithAttrs([]slog.Attr{slog.String("component", "rank")})

	slog.New(h).Info("attr carried")

	if !strings.Contains(buf.String(), `"component":"rank"`) {
		t.Errorf("attrs not applied: %s", buf.String())
	}
}
