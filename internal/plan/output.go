package plan

import (
	"cmp"
	"slices"
	"time"

	"resplice/internal/cue"
)

// OutputCues returns the target cues a plan serves, timed on the output it
// produces. Iterative plans reshape the media onto the target timeline, so
// served cues keep their target times. Search plans lay cues out in op
// order: a cue starts where its source start falls inside the first op that
// serves it. Unmatched and zero-length cues are left out.
func OutputCues(p *Plan, report Report, target, original *cue.Index) []cue.Cue {
	if p == nil || target == nil {
		return nil
	}
	served := make(map[int]CueReport, len(report.Cues))
	for _, c := range report.Cues {
		if c.Status != StatusUnmatched && c.Status != StatusEmpty {
			served[c.Target] = c
		}
	}

	var out []cue.Cue
	emit := func(pos int, start time.Duration) {
		t := target.At(pos)
		out = append(out, cue.Cue{Start: start, End: start + t.Duration(), Text: t.Text})
	}

	if p.Iterative {
		for pos := range target.Len() {
			if _, ok := served[pos]; ok {
				emit(pos, target.At(pos).Start)
			}
		}
	} else {
		placed := make(map[int]bool, len(served))
		var at time.Duration
		for _, op := range p.Ops {
			for _, pos := range op.Cues {
				c, ok := served[pos]
				if !ok || placed[pos] {
					continue
				}
				placed[pos] = true
				start := at
				if op.Kind == OpCopy && original != nil && c.Source >= 0 && c.Source < original.Len() {
					start += min(max(original.At(c.Source).Start-op.Start, 0), op.Duration())
				}
				emit(pos, start)
			}
			at += op.Duration()
		}
		slices.SortStableFunc(out, func(a, b cue.Cue) int { return cmp.Compare(a.Start, b.Start) })
	}

	for i := range out {
		out[i].Index = i + 1
	}
	return out
}
