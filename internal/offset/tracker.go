// Package offset tracks the running drift between the edited media and the
// target timeline when cues are aligned positionally.
package offset

import (
	"fmt"
	"time"

	"resplice/internal/cue"
)

// DefaultThreshold is the drift tolerated before an edit is emitted.
const DefaultThreshold = 500 * time.Millisecond

// Action is the edit a step emits.
type Action string

const (
	ActionNone   Action = "none"
	ActionTrim   Action = "trim"
	ActionFreeze Action = "freeze"
)

// Step records the outcome of processing one cue pair.
type Step struct {
	Cue    int
	Action Action
	// Position is the mapped media position of the original cue in the
	// media as edited by all previous steps.
	Position time.Duration
	// Diff is Position minus the target cue start.
	Diff time.Duration
	// Amount is the duration trimmed or frozen. A trim removes the Amount
	// immediately preceding Position; a freeze inserts Amount at Position.
	Amount       time.Duration
	OffsetBefore time.Duration
	OffsetAfter  time.Duration
	// Clamped is set when a trim was limited by the previous edit point.
	Clamped   bool
	Requested time.Duration
}

// Delta is the signed change this step applied to the cumulative offset.
func (s Step) Delta() time.Duration {
	return s.OffsetAfter - s.OffsetBefore
}

func (s Step) String() string {
	switch s.Action {
	case ActionTrim:
		return fmt.Sprintf("cue %d: trim %s before %s", s.Cue, s.Amount, s.Position)
	case ActionFreeze:
		return fmt.Sprintf("cue %d: freeze %s at %s", s.Cue, s.Amount, s.Position)
	default:
		return fmt.Sprintf("cue %d: no edit (diff %s)", s.Cue, s.Diff)
	}
}

// Tracker is the per-task cumulative offset state machine. It is not safe
// for concurrent use; cue pairs must be fed strictly in order.
type Tracker struct {
	threshold   time.Duration
	offset      time.Duration
	lastEdit    time.Duration
	adjustments []time.Duration
	processed   int
}

// NewTracker returns a tracker with zero offset. A non-positive threshold
// selects DefaultThreshold.
func NewTracker(threshold time.Duration) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{threshold: threshold}
}

// Threshold returns the configured tolerance.
func (t *Tracker) Threshold() time.Duration {
	return t.threshold
}

// Offset returns the cumulative offset after the last processed step.
func (t *Tracker) Offset() time.Duration {
	return t.offset
}

// Processed returns the number of steps taken.
func (t *Tracker) Processed() int {
	return t.processed
}

// Adjustments returns the signed offset changes applied so far, in order.
func (t *Tracker) Adjustments() []time.Duration {
	out := make([]time.Duration, len(t.adjustments))
	copy(out, t.adjustments)
	return out
}

// Step processes the next original/target cue pair.
func (t *Tracker) Step(original, target cue.Cue) Step {
	pos := original.Start + t.offset
	diff := pos - target.Start
	step := Step{
		Cue:          t.processed,
		Action:       ActionNone,
		Position:     pos,
		Diff:         diff,
		OffsetBefore: t.offset,
		OffsetAfter:  t.offset,
	}
	t.processed++

	switch {
	case diff > t.threshold:
		amount := diff
		step.Requested = diff
		if available := pos - t.lastEdit; amount > available {
			amount = max(available, 0)
			step.Clamped = true
		}
		if amount == 0 {
			return step
		}
		step.Action = ActionTrim
		step.Amount = amount
		t.offset -= amount
		t.lastEdit = pos - amount
	case diff < -t.threshold:
		amount := -diff
		step.Requested = amount
		step.Action = ActionFreeze
		step.Amount = amount
		t.offset += amount
		t.lastEdit = pos + amount
	default:
		return step
	}

	step.OffsetAfter = t.offset
	t.adjustments = append(t.adjustments, step.Delta())
	return step
}

// Run processes min(len(original), len(target)) cue pairs and returns every
// step, edits and no-ops alike.
func Run(original, target *cue.Index, threshold time.Duration) ([]Step, *Tracker) {
	tracker := NewTracker(threshold)
	n := min(original.Len(), target.Len())
	steps := make([]Step, 0, n)
	for i := 0; i < n; i++ {
		steps = append(steps, tracker.Step(original.At(i), target.At(i)))
	}
	return steps, tracker
}
