package errors

import (
	"errors"
	"testing"
)

func TestWrapper_Wrap(t *testing.T) {
	w := NewWrapper("encoder", "embed")

	if got := w.Wrap(nil, "ignored"); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}

	cause := errors.New("boom")
	err := w.Wrap(cause, "embedding failed")

	var wrapped *WrappedError
	if !errors.As(err, &wrapped) {
		t.Fatalf("expected *WrappedError, got %T", err)
	}
	if wrapped.Component != "encoder" || wrapped.Operation != "embed" {
		t.Errorf("context = %s:%s, want encoder:embed", wrapped.Component, wrapped.Operation)
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
}

func TestWrapper_Wrapf(t *testing.T) {
	w := NewWrapper("catalog", "load")

	err := w.Wrapf(errors.New("no such file"), "cannot read %s", "modules.json")
	if GetUserMessage(err) != "cannot read modules.json" {
		t.Errorf("GetUserMessage = %q", GetUserMessage(err))
	}
}

func TestGetUserMessage(t *testing.T) {
	if GetUserMessage(nil) != "" {
		t.Error("GetUserMessage(nil) should be empty")
	}

	plain := errors.New("plain")
	if GetUserMessage(plain) != "plain" {
		t.Errorf("GetUserMessage(plain) = %q", GetUserMessage(plain))
	}
}
