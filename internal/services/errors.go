package services

import (
	"errors"
	"fmt"
	"strings"

	"resplice/internal/history"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrCanceled      = errors.New("canceled")

	// ErrUnmatchedCue marks a target cue that no source cue could serve.
	ErrUnmatchedCue = errors.New("unmatched cue")
	// ErrExtraction marks a toolchain failure or truncated output.
	ErrExtraction = errors.New("extraction failure")
	// ErrFormatMismatch marks clips whose stream parameters cannot be concatenated.
	ErrFormatMismatch = errors.New("format mismatch")
	// ErrInsufficientSource marks a clamped trim or extension. It is recoverable.
	ErrInsufficientSource = errors.New("insufficient source")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureStatus maps a pipeline error to the outcome recorded in run history.
func FailureStatus(err error) history.Status {
	switch {
	case errors.Is(err, ErrCanceled):
		return history.StatusCanceled
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration),
		errors.Is(err, ErrNotFound), errors.Is(err, ErrUnmatchedCue):
		return history.StatusReview
	default:
		return history.StatusFailed
	}
}

// Kind returns a short label for the first marker err carries.
func Kind(err error) string {
	for _, m := range []struct {
		marker error
		label  string
	}{
		{ErrUnmatchedCue, "unmatched_cue"},
		{ErrExtraction, "extraction_failure"},
		{ErrFormatMismatch, "format_mismatch"},
		{ErrInsufficientSource, "insufficient_source"},
		{ErrTimeout, "timeout"},
		{ErrCanceled, "canceled"},
		{ErrValidation, "validation"},
		{ErrConfiguration, "configuration"},
		{ErrNotFound, "not_found"},
		{ErrExternalTool, "external_tool"},
	} {
		if errors.Is(err, m.marker) {
			return m.label
		}
	}
	if err == nil {
		return ""
	}
	return "unknown"
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
