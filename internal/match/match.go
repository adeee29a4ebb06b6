package match

import (
	"time"

	"resplice/internal/cue"
)

// NoMatch marks a result without a source cue.
const NoMatch = -1

// Result describes the outcome of matching one target cue.
type Result struct {
	// Target is the position of the target cue in its index.
	Target int
	// Source is the position of the chosen source cue, or NoMatch.
	Source         int
	Score          float64
	TextSimilarity float64
	// TimeDelta is source start minus target start.
	TimeDelta time.Duration
}

// Matched reports whether a source cue was selected.
func (r Result) Matched() bool {
	return r.Source != NoMatch
}

// State is the search position carried between successive Match calls.
type State struct {
	// Anchor is the source position of the previous accepted match.
	Anchor  int
	Exclude ExclusionSet
}

// NewState returns the state for the first target cue.
func NewState() State {
	return State{Anchor: 0}
}

// Advance folds an accepted result into the state. Unmatched results leave
// the state unchanged.
func (s State) Advance(r Result, cfg Config) State {
	if !r.Matched() {
		return s
	}
	next := State{Anchor: r.Source, Exclude: s.Exclude}
	if cfg.exclusive() {
		next.Exclude = s.Exclude.With(r.Source)
	}
	return next
}

// Match selects the source cue for target, the cue at targetPos of the
// target sequence. It does not modify state.
func Match(target cue.Cue, targetPos int, original *cue.Index, state State, cfg Config) Result {
	none := Result{Target: targetPos, Source: NoMatch}
	if original.Len() == 0 {
		return none
	}
	switch cfg.Strategy {
	case StrategyNearestTime:
		return matchNearest(target, targetPos, original, state, cfg)
	case StrategyOverlap:
		return matchOverlap(target, targetPos, original, state, cfg)
	case StrategyCumulative:
		return matchPositional(target, targetPos, original)
	default:
		return matchText(target, targetPos, original, state, cfg)
	}
}

// MatchAll matches every target cue in order, threading the search state.
func MatchAll(target, original *cue.Index, cfg Config) []Result {
	results := make([]Result, 0, target.Len())
	state := NewState()
	for i := 0; i < target.Len(); i++ {
		r := Match(target.At(i), i, original, state, cfg)
		state = state.Advance(r, cfg)
		results = append(results, r)
	}
	return results
}

type candidate struct {
	pos      int
	score    float64
	distance time.Duration
}

// better orders candidates by score, then time distance, then position.
func (c candidate) better(o candidate) bool {
	if c.score != o.score {
		return c.score > o.score
	}
	if c.distance != o.distance {
		return c.distance < o.distance
	}
	return c.pos < o.pos
}

func matchText(target cue.Cue, targetPos int, original *cue.Index, state State, cfg Config) Result {
	best := candidate{pos: NoMatch}
	var bestText float64
	targetDur := target.Duration().Seconds()

	lo, hi := original.Window(state.Anchor, cfg.Window)
	for pos := lo; pos <= hi; pos++ {
		if state.Exclude.Has(pos) {
			continue
		}
		src := original.At(pos)
		textSim := TextSimilarity(target.Text, src.Text)
		if cfg.MinTextSimilarity > 0 && textSim < cfg.MinTextSimilarity {
			continue
		}
		durSim := DurationSimilarity(targetDur, src.Duration().Seconds())
		score := clamp01(cfg.TextWeight*textSim + cfg.DurationWeight*durSim)
		if score <= cfg.AcceptThreshold {
			continue
		}
		c := candidate{pos: pos, score: score, distance: absDuration(src.Start - target.Start)}
		if best.pos == NoMatch || c.better(best) {
			best = c
			bestText = textSim
		}
	}
	if best.pos == NoMatch {
		return Result{Target: targetPos, Source: NoMatch}
	}
	return Result{
		Target:         targetPos,
		Source:         best.pos,
		Score:          best.score,
		TextSimilarity: bestText,
		TimeDelta:      original.At(best.pos).Start - target.Start,
	}
}

func matchNearest(target cue.Cue, targetPos int, original *cue.Index, state State, cfg Config) Result {
	pos := original.NearestStart(target.Start, func(p int) bool {
		return !state.Exclude.Has(p)
	})
	if pos < 0 {
		return Result{Target: targetPos, Source: NoMatch}
	}
	src := original.At(pos)
	delta := src.Start - target.Start
	if cfg.NearestMaxDistance > 0 && absDuration(delta) > cfg.NearestMaxDistance {
		return Result{Target: targetPos, Source: NoMatch}
	}
	return Result{
		Target:         targetPos,
		Source:         pos,
		Score:          proximityScore(delta),
		TextSimilarity: TextSimilarity(target.Text, src.Text),
		TimeDelta:      delta,
	}
}

func matchOverlap(target cue.Cue, targetPos int, original *cue.Index, state State, cfg Config) Result {
	best := candidate{pos: NoMatch}
	var bestOverlap time.Duration
	for pos := 0; pos < original.Len(); pos++ {
		if state.Exclude.Has(pos) {
			continue
		}
		src := original.At(pos)
		overlap := minDuration(target.End, src.End) - maxDuration(target.Start, src.Start)
		if overlap <= cfg.MinOverlap {
			continue
		}
		longest := maxDuration(target.Duration(), src.Duration())
		c := candidate{
			pos:      pos,
			score:    clamp01(overlap.Seconds() / longest.Seconds()),
			distance: absDuration(src.Start - target.Start),
		}
		if best.pos == NoMatch || overlap > bestOverlap ||
			(overlap == bestOverlap && c.better(best)) {
			best = c
			bestOverlap = overlap
		}
	}
	if best.pos == NoMatch {
		return Result{Target: targetPos, Source: NoMatch}
	}
	src := original.At(best.pos)
	return Result{
		Target:         targetPos,
		Source:         best.pos,
		Score:          best.score,
		TextSimilarity: TextSimilarity(target.Text, src.Text),
		TimeDelta:      src.Start - target.Start,
	}
}

func matchPositional(target cue.Cue, targetPos int, original *cue.Index) Result {
	if targetPos < 0 || targetPos >= original.Len() {
		return Result{Target: targetPos, Source: NoMatch}
	}
	src := original.At(targetPos)
	return Result{
		Target:         targetPos,
		Source:         targetPos,
		Score:          1,
		TextSimilarity: TextSimilarity(target.Text, src.Text),
		TimeDelta:      src.Start - target.Start,
	}
}

// proximityScore maps a time distance onto (0,1], 1 for an exact hit.
func proximityScore(delta time.Duration) float64 {
	return 1 / (1 + absDuration(delta).Seconds())
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
