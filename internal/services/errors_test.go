package services_test

import (
	"errors"
	"strings"
	"testing"

	"resplice/internal/history"
	"resplice/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExtraction, "splice", "extract", "segment 3", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"splice", "extract", "segment 3"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected default marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err)
	}
}

func TestFailureStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want history.Status
	}{
		{"validation", services.Wrap(services.ErrValidation, "plan", "load", "invalid", nil), history.StatusReview},
		{"unmatched", services.Wrap(services.ErrUnmatchedCue, "plan", "build", "cue 2", nil), history.StatusReview},
		{"timeout", services.Wrap(services.ErrTimeout, "splice", "concat", "deadline", nil), history.StatusFailed},
		{"canceled", services.Wrap(services.ErrCanceled, "splice", "extract", "", nil), history.StatusCanceled},
		{"nil", nil, history.StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := services.FailureStatus(tt.err); got != tt.want {
				t.Fatalf("FailureStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if got := services.Kind(services.Wrap(services.ErrFormatMismatch, "splice", "concat", "", nil)); got != "format_mismatch" {
		t.Fatalf("Kind = %q", got)
	}
	if got := services.Kind(nil); got != "" {
		t.Fatalf("Kind(nil) = %q", got)
	}
	if got := services.Kind(errors.New("x")); got != "unknown" {
		t.Fatalf("Kind(plain) = %q", got)
	}
}
