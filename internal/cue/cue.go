package cue

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Cue is a single subtitle entry.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Duration reports the on-screen length of the cue.
func (c Cue) Duration() time.Duration {
	return c.End - c.Start
}

func (c Cue) String() string {
	return fmt.Sprintf("#%d [%s-%s] %q", c.Index, c.Start, c.End, strings.TrimSpace(c.Text))
}

// Index is an immutable ordered view over a cue sequence.
type Index struct {
	cues    []Cue
	byStart []int
	ordered bool
}

// NewIndex copies cues into a new Index. A cue whose end precedes its start
// is rejected; decreasing start times are accepted.
func NewIndex(cues []Cue) (*Index, error) {
	copied := make([]Cue, len(cues))
	copy(copied, cues)

	ordered := true
	for i, c := range copied {
		if c.Start < 0 {
			return nil, fmt.Errorf("cue %d: negative start %s", c.Index, c.Start)
		}
		if c.End < c.Start {
			return nil, fmt.Errorf("cue %d: end %s before start %s", c.Index, c.End, c.Start)
		}
		if i > 0 && c.Start < copied[i-1].Start {
			ordered = false
		}
	}

	byStart := make([]int, len(copied))
	for i := range byStart {
		byStart[i] = i
	}
	if !ordered {
		sort.SliceStable(byStart, func(a, b int) bool {
			return copied[byStart[a]].Start < copied[byStart[b]].Start
		})
	}
	return &Index{cues: copied, byStart: byStart, ordered: ordered}, nil
}

// MustIndex is NewIndex for literals known to be valid.
func MustIndex(cues []Cue) *Index {
	idx, err := NewIndex(cues)
	if err != nil {
		panic(err)
	}
	return idx
}

// Len returns the number of cues.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.cues)
}

// At returns the cue at position i.
func (x *Index) At(i int) Cue {
	return x.cues[i]
}

// Ordered reports whether start times were non-decreasing at construction.
func (x *Index) Ordered() bool {
	return x == nil || x.ordered
}

// Cues returns a copy of the underlying sequence.
func (x *Index) Cues() []Cue {
	if x == nil {
		return nil
	}
	out := make([]Cue, len(x.cues))
	copy(out, x.cues)
	return out
}

// Window returns the positions within radius of center, clamped to the index
// bounds. A negative center yields the window around the first cue.
func (x *Index) Window(center, radius int) (lo, hi int) {
	n := x.Len()
	if n == 0 {
		return 0, -1
	}
	if center < 0 {
		center = 0
	}
	if center >= n {
		center = n - 1
	}
	lo = center - radius
	if lo < 0 {
		lo = 0
	}
	hi = center + radius
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// NearestStart returns the position of the cue whose start is closest to ts
// and for which accept returns true. Ties favour the smaller position. It
// returns -1 when no cue is accepted.
func (x *Index) NearestStart(ts time.Duration, accept func(pos int) bool) int {
	n := x.Len()
	if n == 0 {
		return -1
	}
	pivot := sort.Search(n, func(i int) bool {
		return x.cues[x.byStart[i]].Start >= ts
	})

	best := -1
	var bestDist time.Duration
	consider := func(pos int) {
		if accept != nil && !accept(pos) {
			return
		}
		dist := absDuration(x.cues[pos].Start - ts)
		if best < 0 || dist < bestDist || (dist == bestDist && pos < best) {
			best = pos
			bestDist = dist
		}
	}

	// Walk outward from the pivot so the first accepted cue on each side is
	// the nearest one on that side.
	left, right := pivot-1, pivot
	leftDone, rightDone := false, false
	for !(leftDone && rightDone) {
		if !rightDone {
			if right >= n {
				rightDone = true
			} else {
				pos := x.byStart[right]
				if best >= 0 && x.cues[pos].Start-ts > bestDist {
					rightDone = true
				} else {
					consider(pos)
					right++
				}
			}
		}
		if !leftDone {
			if left < 0 {
				leftDone = true
			} else {
				pos := x.byStart[left]
				if best >= 0 && ts-x.cues[pos].Start > bestDist {
					leftDone = true
				} else {
					consider(pos)
					left--
				}
			}
		}
	}
	return best
}

// NextStartAfter returns the smallest cue start strictly greater than ts, or
// false when none exists.
func (x *Index) NextStartAfter(ts time.Duration) (time.Duration, bool) {
	n := x.Len()
	i := sort.Search(n, func(i int) bool {
		return x.cues[x.byStart[i]].Start > ts
	})
	if i >= n {
		return 0, false
	}
	return x.cues[x.byStart[i]].Start, true
}

// TotalDuration sums every cue duration.
func (x *Index) TotalDuration() time.Duration {
	var total time.Duration
	for _, c := range x.Cues() {
		total += c.Duration()
	}
	return total
}

// LastEnd returns the largest end time in the index.
func (x *Index) LastEnd() time.Duration {
	var last time.Duration
	for i := 0; i < x.Len(); i++ {
		if x.cues[i].End > last {
			last = x.cues[i].End
		}
	}
	return last
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Seconds converts fractional seconds to a Duration rounded to the nearest
// millisecond, the precision subtitle timestamps carry.
func Seconds(s float64) time.Duration {
	return time.Duration(s*1000+signHalf(s)) * time.Millisecond
}

func signHalf(v float64) float64 {
	if v < 0 {
		return -0.5
	}
	return 0.5
}
