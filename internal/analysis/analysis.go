package analysis

import (
	"math"
	"strconv"
	"time"

	"resplice/internal/cue"
)

// Seconds is a duration that marshals as fractional seconds rounded to the
// millisecond.
type Seconds time.Duration

func (s Seconds) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, math.Round(time.Duration(s).Seconds()*1000)/1000, 'f', -1, 64), nil
}

func (s Seconds) String() string {
	return strconv.FormatFloat(time.Duration(s).Seconds(), 'f', 3, 64)
}

// Stats summarizes a series of signed deltas.
type Stats struct {
	Min Seconds `json:"min"`
	Max Seconds `json:"max"`
	Avg Seconds `json:"avg"`
}

// Timing is one cue's position.
type Timing struct {
	Text     string  `json:"text"`
	Start    Seconds `json:"start"`
	End      Seconds `json:"end"`
	Duration Seconds `json:"duration"`
}

// CueDelta compares the i-th cue of both timelines. Deltas are target minus
// original.
type CueDelta struct {
	Index         int     `json:"index"`
	Original      Timing  `json:"original"`
	Target        Timing  `json:"target"`
	StartDelta    Seconds `json:"start_diff"`
	EndDelta      Seconds `json:"end_diff"`
	DurationDelta Seconds `json:"duration_diff"`
}

// Summary aggregates a comparison.
type Summary struct {
	OriginalCount int   `json:"original_count"`
	TargetCount   int   `json:"target_count"`
	Compared      int   `json:"compared_count"`
	Start         Stats `json:"start_offset"`
	Duration      Stats `json:"duration_offset"`
	End           Stats `json:"end_offset"`
}

// Comparison is the full positional comparison.
type Comparison struct {
	Summary Summary    `json:"summary"`
	Details []CueDelta `json:"details"`
}

// Profile describes a single timeline.
type Profile struct {
	Count       int     `json:"count"`
	Total       Seconds `json:"total_duration"`
	AvgDuration Seconds `json:"avg_duration"`
	MinDuration Seconds `json:"min_duration"`
	MaxDuration Seconds `json:"max_duration"`
	AvgGap      Seconds `json:"avg_gap"`
	MinGap      Seconds `json:"min_gap"`
	MaxGap      Seconds `json:"max_gap"`
}

// Compare pairs min(len) cues of original and target in order.
func Compare(original, target *cue.Index) Comparison {
	n := min(original.Len(), target.Len())
	out := Comparison{
		Summary: Summary{OriginalCount: original.Len(), TargetCount: target.Len(), Compared: n},
		Details: make([]CueDelta, 0, n),
	}
	var starts, ends, durations []time.Duration
	for i := 0; i < n; i++ {
		o, t := original.At(i), target.At(i)
		d := CueDelta{
			Index:         i + 1,
			Original:      timing(o),
			Target:        timing(t),
			StartDelta:    Seconds(t.Start - o.Start),
			EndDelta:      Seconds(t.End - o.End),
			DurationDelta: Seconds(t.Duration() - o.Duration()),
		}
		starts = append(starts, t.Start-o.Start)
		ends = append(ends, t.End-o.End)
		durations = append(durations, t.Duration()-o.Duration())
		out.Details = append(out.Details, d)
	}
	out.Summary.Start = summarize(starts)
	out.Summary.End = summarize(ends)
	out.Summary.Duration = summarize(durations)
	return out
}

// ProfileOf computes duration and gap statistics for one timeline. Gaps are
// measured from each cue's end to the next cue's start and may be negative
// for overlapping cues.
func ProfileOf(idx *cue.Index) Profile {
	if idx == nil || idx.Len() == 0 {
		return Profile{}
	}
	var durations, gaps []time.Duration
	for i := 0; i < idx.Len(); i++ {
		c := idx.At(i)
		durations = append(durations, c.Duration())
		if i > 0 {
			gaps = append(gaps, c.Start-idx.At(i-1).End)
		}
	}
	d, g := summarize(durations), summarize(gaps)
	return Profile{
		Count:       idx.Len(),
		Total:       Seconds(idx.At(idx.Len() - 1).End),
		AvgDuration: d.Avg,
		MinDuration: d.Min,
		MaxDuration: d.Max,
		AvgGap:      g.Avg,
		MinGap:      g.Min,
		MaxGap:      g.Max,
	}
}

// Shifted returns the 1-based indices of cues whose start delta exceeds threshold in
// either direction.
func (c Comparison) Shifted(threshold time.Duration) []int {
	var out []int
	for _, d := range c.Details {
		if delta := time.Duration(d.StartDelta); delta > threshold || -delta > threshold {
			out = append(out, d.Index)
		}
	}
	return out
}

func timing(c cue.Cue) Timing {
	return Timing{Text: c.Text, Start: Seconds(c.Start), End: Seconds(c.End), Duration: Seconds(c.Duration())}
}

func summarize(values []time.Duration) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	lo, hi, sum := values[0], values[0], time.Duration(0)
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += v
	}
	return Stats{Min: Seconds(lo), Max: Seconds(hi), Avg: Seconds(sum / time.Duration(len(values)))}
}
