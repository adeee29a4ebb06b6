package plan

import (
	"time"

	"resplice/internal/match"
)

// CueStatus summarizes what happened to a target cue.
type CueStatus string

const (
	StatusMatched   CueStatus = "matched"
	StatusExtended  CueStatus = "extended"
	StatusFrozen    CueStatus = "frozen"
	StatusUnmatched CueStatus = "unmatched"
	StatusAdjusted  CueStatus = "adjusted"
	StatusAligned   CueStatus = "aligned"
	StatusEmpty     CueStatus = "empty"
)

// CueReport is the diagnostic record for one target cue.
type CueReport struct {
	Target         int           `json:"target"`
	TargetIndex    int           `json:"target_index"`
	TargetStart    time.Duration `json:"target_start"`
	TargetEnd      time.Duration `json:"target_end"`
	Text           string        `json:"text,omitempty"`
	Source         int           `json:"source"`
	SourceIndex    int           `json:"source_index,omitempty"`
	Score          float64       `json:"score"`
	TextSimilarity float64       `json:"text_similarity"`
	TimeDelta      time.Duration `json:"time_delta"`
	Status         CueStatus     `json:"status"`
	// Adjustment is the signed edit applied for this cue: extension and
	// freeze lengths for search strategies, the offset delta for cumulative.
	Adjustment time.Duration `json:"adjustment"`
	Clamped    bool          `json:"clamped,omitempty"`
}

// Diagnostic is a recoverable condition met while planning.
type Diagnostic struct {
	Kind    string `json:"kind"`
	Target  int    `json:"target"`
	Message string `json:"message"`
}

// DiagnosticInsufficientSource marks a clamped trim or extension.
const DiagnosticInsufficientSource = "insufficient_source"

// Report is the MatchReport handed to callers for observability.
type Report struct {
	Strategy    match.Strategy `json:"strategy"`
	Cues        []CueReport    `json:"cues"`
	Matched     int            `json:"matched"`
	Unmatched   int            `json:"unmatched"`
	Diagnostics []Diagnostic   `json:"diagnostics,omitempty"`
}

// MatchRate is the fraction of target cues that found a source.
func (r Report) MatchRate() float64 {
	total := r.Matched + r.Unmatched
	if total == 0 {
		return 0
	}
	return float64(r.Matched) / float64(total)
}

// UnmatchedTargets lists target positions without a source.
func (r Report) UnmatchedTargets() []int {
	var out []int
	for _, c := range r.Cues {
		if c.Status == StatusUnmatched {
			out = append(out, c.Target)
		}
	}
	return out
}
