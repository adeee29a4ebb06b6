package analysis

import (
	"encoding/json"
	"testing"
	"time"

	"resplice/internal/cue"
)

func sec(s float64) time.Duration { return cue.Seconds(s) }

func index(t *testing.T, spans ...[2]float64) *cue.Index {
	t.Helper()
	cues := make([]cue.Cue, 0, len(spans))
	for i, s := range spans {
		cues = append(cues, cue.Cue{Index: i + 1, Start: sec(s[0]), End: sec(s[1]), Text: "line"})
	}
	return cue.MustIndex(cues)
}

func TestCompareDeltas(t *testing.T) {
	original := index(t, [2]float64{0, 2}, [2]float64{3, 5}, [2]float64{10, 12})
	target := index(t, [2]float64{0, 2}, [2]float64{2, 5})

	got := Compare(original, target)
	if got.Summary.Compared != 2 || got.Summary.OriginalCount != 3 || got.Summary.TargetCount != 2 {
		t.Fatalf("unexpected counts %+v", got.Summary)
	}
	second := got.Details[1]
	if time.Duration(second.StartDelta) != sec(-1) || time.Duration(second.EndDelta) != 0 || time.Duration(second.DurationDelta) != sec(1) {
		t.Fatalf("unexpected delta %+v", second)
	}

	tests := []struct {
		name  string
		stats Stats
		min   time.Duration
		max   time.Duration
		avg   time.Duration
	}{
		{"start", got.Summary.Start, sec(-1), 0, sec(-0.5)},
		{"end", got.Summary.End, 0, 0, 0},
		{"duration", got.Summary.Duration, 0, sec(1), sec(0.5)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := tc.stats
			if time.Duration(s.Min) != tc.min || time.Duration(s.Max) != tc.max || time.Duration(s.Avg) != tc.avg {
				t.Fatalf("stats = %+v", s)
			}
		})
	}

	if shifted := got.Shifted(sec(0.5)); len(shifted) != 1 || shifted[0] != 2 {
		t.Fatalf("shifted = %v", shifted)
	}
}

func TestProfileOf(t *testing.T) {
	p := ProfileOf(index(t, [2]float64{1, 2}, [2]float64{3, 6}, [2]float64{5.5, 7}))
	if p.Count != 3 || time.Duration(p.Total) != sec(7) {
		t.Fatalf("unexpected profile %+v", p)
	}
	if time.Duration(p.MinGap) != sec(-0.5) || time.Duration(p.MaxGap) != sec(1) {
		t.Fatalf("unexpected gaps %+v", p)
	}
	if time.Duration(p.MaxDuration) != sec(3) || time.Duration(p.MinDuration) != sec(1) {
		t.Fatalf("unexpected durations %+v", p)
	}
	if empty := ProfileOf(nil); empty.Count != 0 {
		t.Fatalf("expected empty profile, got %+v", empty)
	}
}

func TestSecondsMarshalRoundsToMillis(t *testing.T) {
	data, err := json.Marshal(Stats{Min: Seconds(-1234567 * time.Microsecond), Max: Seconds(2 * time.Second), Avg: 0})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `{"min":-1.235,"max":2,"avg":0}`; got != want {
		t.Fatalf("json = %s, want %s", got, want)
	}
}
