package cue_test

import (
	"testing"
	"time"

	"resplice/internal/cue"
)

func sec(s float64) time.Duration { return cue.Seconds(s) }

func TestNewIndexRejectsInvertedCue(t *testing.T) {
	_, err := cue.NewIndex([]cue.Cue{{Index: 1, Start: sec(2), End: sec(1)}})
	if err == nil {
		t.Fatal("expected error for end before start")
	}
}

func TestNewIndexToleratesDisorder(t *testing.T) {
	idx, err := cue.NewIndex([]cue.Cue{
		{Index: 1, Start: sec(5), End: sec(6)},
		{Index: 2, Start: sec(1), End: sec(2)},
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	if idx.Ordered() {
		t.Fatal("expected index to report disorder")
	}
	if got := idx.At(0).Index; got != 1 {
		t.Fatalf("positional order changed: first index %d", got)
	}
	if pos := idx.NearestStart(sec(1.2), nil); pos != 1 {
		t.Fatalf("NearestStart = %d, want 1", pos)
	}
}

func TestNewIndexCopiesInput(t *testing.T) {
	cues := []cue.Cue{{Index: 1, Start: 0, End: sec(1), Text: "a"}}
	idx := cue.MustIndex(cues)
	cues[0].Text = "changed"
	if idx.At(0).Text != "a" {
		t.Fatal("index aliases caller slice")
	}
}

func TestWindowClamps(t *testing.T) {
	idx := cue.MustIndex(make([]cue.Cue, 5))
	tests := []struct {
		center, radius int
		lo, hi         int
	}{
		{center: -1, radius: 2, lo: 0, hi: 2},
		{center: 2, radius: 1, lo: 1, hi: 3},
		{center: 4, radius: 10, lo: 0, hi: 4},
		{center: 9, radius: 0, lo: 4, hi: 4},
	}
	for _, tt := range tests {
		lo, hi := idx.Window(tt.center, tt.radius)
		if lo != tt.lo || hi != tt.hi {
			t.Fatalf("Window(%d,%d) = %d,%d want %d,%d", tt.center, tt.radius, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestNearestStartSkipsRejected(t *testing.T) {
	idx := cue.MustIndex([]cue.Cue{
		{Index: 1, Start: sec(0), End: sec(1)},
		{Index: 2, Start: sec(2), End: sec(3)},
		{Index: 3, Start: sec(4), End: sec(5)},
	})
	pos := idx.NearestStart(sec(2.1), func(p int) bool { return p != 1 })
	if pos != 2 {
		t.Fatalf("NearestStart = %d, want 2", pos)
	}
	if got := idx.NearestStart(sec(2), func(int) bool { return false }); got != -1 {
		t.Fatalf("expected -1 when everything rejected, got %d", got)
	}
}

func TestNearestStartTiePrefersLowerPosition(t *testing.T) {
	idx := cue.MustIndex([]cue.Cue{
		{Index: 1, Start: sec(1), End: sec(2)},
		{Index: 2, Start: sec(3), End: sec(4)},
	})
	if pos := idx.NearestStart(sec(2), nil); pos != 0 {
		t.Fatalf("NearestStart tie = %d, want 0", pos)
	}
}

func TestNextStartAfter(t *testing.T) {
	idx := cue.MustIndex([]cue.Cue{
		{Index: 1, Start: sec(0), End: sec(1)},
		{Index: 2, Start: sec(3), End: sec(4)},
	})
	next, ok := idx.NextStartAfter(0)
	if !ok || next != sec(3) {
		t.Fatalf("NextStartAfter = %s %v", next, ok)
	}
	if _, ok := idx.NextStartAfter(sec(3)); ok {
		t.Fatal("expected no start after last cue")
	}
}

func TestTotalDurationAndLastEnd(t *testing.T) {
	idx := cue.MustIndex([]cue.Cue{
		{Index: 1, Start: sec(0), End: sec(1.5)},
		{Index: 2, Start: sec(2), End: sec(4)},
	})
	if got := idx.TotalDuration(); got != sec(3.5) {
		t.Fatalf("TotalDuration = %s", got)
	}
	if got := idx.LastEnd(); got != sec(4) {
		t.Fatalf("LastEnd = %s", got)
	}
}

func TestSecondsRounds(t *testing.T) {
	if got := cue.Seconds(1.2346); got != 1235*time.Millisecond {
		t.Fatalf("Seconds(1.2346) = %s", got)
	}
	if got := cue.Seconds(-0.5); got != -500*time.Millisecond {
		t.Fatalf("Seconds(-0.5) = %s", got)
	}
}
