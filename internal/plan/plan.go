package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"resplice/internal/cue"
	"resplice/internal/match"
	"resplice/internal/offset"
	"resplice/internal/services"
)

// Policy decides what happens to target cues without a source.
type Policy string

const (
	PolicyDrop Policy = "drop"
	PolicyFail Policy = "fail"
)

// ParsePolicy accepts "drop", "skip" or "fail".
func ParsePolicy(value string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "drop", "skip":
		return PolicyDrop, nil
	case "fail":
		return PolicyFail, nil
	default:
		return "", fmt.Errorf("unknown unmatched policy %q", value)
	}
}

// DefaultMergeGap is the largest source gap bridged when coalescing copies.
const DefaultMergeGap = 500 * time.Millisecond

// Config controls plan building.
type Config struct {
	Match     match.Config
	Unmatched Policy
	MergeGap  time.Duration
	// ExtendToNextCue stops smart extension at the next original cue start.
	ExtendToNextCue bool
	// MediaDuration bounds every copy. Zero falls back to the last original
	// cue end.
	MediaDuration time.Duration
	// Threshold is the cumulative strategy's drift tolerance.
	Threshold time.Duration
}

// DefaultConfig returns the stock plan configuration for strategy.
func DefaultConfig(strategy match.Strategy) Config {
	return Config{
		Match:           match.DefaultConfig(strategy),
		Unmatched:       PolicyDrop,
		MergeGap:        DefaultMergeGap,
		ExtendToNextCue: true,
		Threshold:       offset.DefaultThreshold,
	}
}

// Plan is an ordered list of ops ready for execution.
type Plan struct {
	Strategy  match.Strategy `json:"strategy"`
	Iterative bool           `json:"iterative"`
	Ops       []Op           `json:"ops"`
	// TargetDuration is the output length the matched cues ask for.
	TargetDuration time.Duration `json:"target_duration"`
	// MergedGap is source material added by coalescing nearby copies.
	MergedGap     time.Duration `json:"merged_gap"`
	MediaDuration time.Duration `json:"media_duration"`
	// FinalOffset is the cumulative offset after the last iterative op.
	FinalOffset time.Duration `json:"final_offset,omitempty"`
}

// Duration sums the op durations.
func (p *Plan) Duration() time.Duration {
	var total time.Duration
	for _, op := range p.Ops {
		total += op.Duration()
	}
	return total
}

// OutputDuration is the expected artifact length. Iterative plans edit the
// whole media, so their output is the media length plus the final offset.
func (p *Plan) OutputDuration() time.Duration {
	if p.Iterative {
		return p.MediaDuration + p.FinalOffset
	}
	return p.Duration()
}

// Empty reports whether there is nothing to execute.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Ops) == 0
}

// Counts returns the number of ops of each kind.
func (p *Plan) Counts() map[OpKind]int {
	counts := make(map[OpKind]int, 3)
	for _, op := range p.Ops {
		counts[op.Kind]++
	}
	return counts
}

// BuildError reports a target cue that stopped plan building.
type BuildError struct {
	Target   int
	CueIndex int
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("target cue %d (#%d): %v", e.Target, e.CueIndex, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Build matches target against original with strategy and returns the plan
// and its per-cue report. Under PolicyFail the report is returned alongside
// a *BuildError naming the first unmatched target cue.
func Build(target, original *cue.Index, strategy match.Strategy, cfg Config) (*Plan, Report, error) {
	cfg.Match.Strategy = strategy
	if err := cfg.Match.Validate(); err != nil {
		return nil, Report{}, services.Wrap(services.ErrConfiguration, "plan", "validate", "matching config", err)
	}
	if cfg.Unmatched == "" {
		cfg.Unmatched = PolicyDrop
	}
	if cfg.MergeGap < 0 {
		return nil, Report{}, services.Wrap(services.ErrConfiguration, "plan", "validate", "merge gap must be >= 0", nil)
	}
	media := cfg.MediaDuration
	if media <= 0 {
		media = original.LastEnd()
	}

	var (
		p      *Plan
		report Report
	)
	if strategy == match.StrategyCumulative {
		p, report = buildCumulative(target, original, media, cfg)
	} else {
		p, report = buildSearch(target, original, media, cfg)
	}
	p.Strategy = strategy
	p.MediaDuration = media
	report.Strategy = strategy

	if cfg.Unmatched == PolicyFail {
		if missing := report.UnmatchedTargets(); len(missing) > 0 {
			first := missing[0]
			err := &BuildError{
				Target:   first,
				CueIndex: target.At(first).Index,
				Err: services.Wrap(services.ErrUnmatchedCue, "plan", "match",
					fmt.Sprintf("%d of %d target cues unmatched", len(missing), target.Len()), nil),
			}
			return nil, report, err
		}
	}
	return p, report, nil
}

func baseReport(t cue.Cue, pos int) CueReport {
	return CueReport{
		Target:      pos,
		TargetIndex: t.Index,
		TargetStart: t.Start,
		TargetEnd:   t.End,
		Text:        strings.TrimSpace(t.Text),
		Source:      match.NoMatch,
		Status:      StatusUnmatched,
	}
}

func buildSearch(target, original *cue.Index, media time.Duration, cfg Config) (*Plan, Report) {
	results := match.MatchAll(target, original, cfg.Match)
	p := &Plan{}
	var report Report

	for _, r := range results {
		t := target.At(r.Target)
		entry := baseReport(t, r.Target)
		if !r.Matched() {
			report.Unmatched++
			report.Cues = append(report.Cues, entry)
			continue
		}
		src := original.At(r.Source)
		entry.Source = r.Source
		entry.SourceIndex = src.Index
		entry.Score = r.Score
		entry.TextSimilarity = r.TextSimilarity
		entry.TimeDelta = r.TimeDelta
		entry.Status = StatusMatched
		report.Matched++

		need := t.Duration()
		if need <= 0 {
			entry.Status = StatusEmpty
			report.Cues = append(report.Cues, entry)
			continue
		}

		ops, extended, shortfall := placeCue(src, need, original, media, cfg.ExtendToNextCue, r.Target)
		p.Ops = append(p.Ops, ops...)
		p.TargetDuration += need
		switch {
		case shortfall > 0:
			entry.Status = StatusFrozen
			entry.Adjustment = extended + shortfall
			entry.Clamped = true
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Kind:    DiagnosticInsufficientSource,
				Target:  r.Target,
				Message: fmt.Sprintf("source ran out %s short; holding last frame", shortfall),
			})
		case extended > 0:
			entry.Status = StatusExtended
			entry.Adjustment = extended
		}
		report.Cues = append(report.Cues, entry)
	}

	p.Ops, p.MergedGap = mergeCopies(p.Ops, cfg.MergeGap)
	return p, report
}

// placeCue emits the ops that give a target cue of length need its source
// material starting at src.Start. Source longer than need is cut; shorter
// source is extended forward up to limit, and any remaining shortfall is
// filled by holding the last available frame.
func placeCue(src cue.Cue, need time.Duration, original *cue.Index, media time.Duration, toNextCue bool, target int) ([]Op, time.Duration, time.Duration) {
	start := src.Start
	if start >= media {
		return []Op{Freeze(media, need, target)}, 0, need
	}

	limit := media
	if toNextCue {
		if next, ok := original.NextStartAfter(src.Start); ok && next < limit {
			limit = max(next, min(src.End, media))
		}
	}

	end := start + need
	var extended time.Duration
	if src.End < end {
		end = min(end, limit)
		extended = max(end-min(src.End, media), 0)
	}
	if end > media {
		end = media
	}

	ops := []Op{Copy(start, end, target)}
	shortfall := need - (end - start)
	if shortfall > 0 {
		ops = append(ops, Freeze(end, shortfall, target))
	}
	return ops, extended, shortfall
}

// mergeCopies coalesces consecutive copies whose forward source gap is at
// most gap. Contiguous copies always merge.
func mergeCopies(ops []Op, gap time.Duration) ([]Op, time.Duration) {
	if len(ops) < 2 {
		return ops, 0
	}
	out := make([]Op, 0, len(ops))
	var bridged time.Duration
	for _, op := range ops {
		if n := len(out); n > 0 && op.Kind == OpCopy && out[n-1].Kind == OpCopy {
			prev := &out[n-1]
			delta := op.Start - prev.End
			if delta == 0 || (gap > 0 && delta > 0 && delta <= gap) {
				prev.End = op.End
				prev.Cues = append(append([]int(nil), prev.Cues...), op.Cues...)
				bridged += delta
				continue
			}
		}
		out = append(out, op)
	}
	return out, bridged
}

func buildCumulative(target, original *cue.Index, media time.Duration, cfg Config) (*Plan, Report) {
	steps, tracker := offset.Run(original, target, cfg.Threshold)
	p := &Plan{Iterative: true}
	var report Report

	for i := 0; i < target.Len(); i++ {
		t := target.At(i)
		entry := baseReport(t, i)
		if i >= len(steps) {
			report.Unmatched++
			report.Cues = append(report.Cues, entry)
			continue
		}
		step := steps[i]
		src := original.At(i)
		entry.Source = i
		entry.SourceIndex = src.Index
		entry.Score = 1
		entry.TextSimilarity = match.TextSimilarity(t.Text, src.Text)
		entry.TimeDelta = src.Start - t.Start
		entry.Adjustment = step.Delta()
		entry.Clamped = step.Clamped
		report.Matched++

		switch step.Action {
		case offset.ActionTrim:
			p.Ops = append(p.Ops, Trim(step.Position, step.Amount, i))
			entry.Status = StatusAdjusted
		case offset.ActionFreeze:
			p.Ops = append(p.Ops, Freeze(step.Position, step.Amount, i))
			entry.Status = StatusAdjusted
		default:
			entry.Status = StatusAligned
		}
		if step.Clamped {
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Kind:   DiagnosticInsufficientSource,
				Target: i,
				Message: fmt.Sprintf("trim of %s clamped to %s at previous edit point",
					step.Requested, step.Amount),
			})
		}
		report.Cues = append(report.Cues, entry)
	}

	p.FinalOffset = tracker.Offset()
	p.TargetDuration = media + tracker.Offset()
	return p, report
}

// IsBuildError reports whether err stopped plan building on an unmatched cue.
func IsBuildError(err error) bool {
	var be *BuildError
	return errors.As(err, &be)
}
