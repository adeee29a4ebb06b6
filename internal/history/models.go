package history

import (
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	// StatusEmpty marks a run whose plan had no ops; no output was written.
	StatusEmpty Status = "empty"
	// StatusReview marks failures that need a human: bad input, bad config, or
	// cues that could not be matched under the fail policy.
	StatusReview   Status = "review"
	StatusFailed   Status = "failed"
	StatusCanceled Status = "canceled"
)

var allStatuses = []Status{
	StatusRunning,
	StatusSucceeded,
	StatusEmpty,
	StatusReview,
	StatusFailed,
	StatusCanceled,
}

// ParseStatus validates a status name.
func ParseStatus(value string) (Status, error) {
	candidate := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == candidate {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown run status %q", value)
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s != StatusRunning && s != ""
}

// Run is one retime invocation.
type Run struct {
	ID          string
	TaskName    string
	VideoPath   string
	OriginalSRT string
	TargetSRT   string
	OutputPath  string
	Strategy    string
	Mode        string
	Status      Status
	Error       string
	ErrorKind   string
	CueCount    int
	Matched     int
	Unmatched   int
	OpCount     int
	Planned     time.Duration
	Realized    time.Duration
	StartedAt   time.Time
	FinishedAt  time.Time
	Cues        []CueRecord
}

// Elapsed returns the wall time of a finished run.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CueRecord is the stored match outcome for one target cue.
type CueRecord struct {
	TargetIndex int
	// SourceIndex is -1 when no source cue was chosen.
	SourceIndex int
	Status      string
	Score       float64
	TimeDelta   time.Duration
	Note        string
}

// ListOptions filters List results.
type ListOptions struct {
	Limit  int
	Status Status
}
