package match_test

import (
	"reflect"
	"testing"
	"time"

	"resplice/internal/cue"
	"resplice/internal/match"
)

func sec(s float64) time.Duration { return cue.Seconds(s) }

func mk(index int, start, end float64, text string) cue.Cue {
	return cue.Cue{Index: index, Start: sec(start), End: sec(end), Text: text}
}

func TestNearestTimeAvoidsDuplicates(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 2, "A"), mk(2, 2, 4, "B")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 2, "A"), mk(2, 3, 5, "B")})

	results := match.MatchAll(target, original, match.DefaultConfig(match.StrategyNearestTime))
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Source != 0 || results[1].Source != 1 {
		t.Fatalf("unexpected sources: %+v", results)
	}
	if results[1].TimeDelta != sec(1) {
		t.Fatalf("TimeDelta = %s", results[1].TimeDelta)
	}
}

func TestNearestTimeNeverReusesSource(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 1, ""), mk(2, 0.1, 1, ""), mk(3, 0.2, 1, "")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 1, ""), mk(2, 10, 11, "")})

	results := match.MatchAll(target, original, match.DefaultConfig(match.StrategyNearestTime))
	seen := map[int]bool{}
	for _, r := range results {
		if !r.Matched() {
			continue
		}
		if seen[r.Source] {
			t.Fatalf("source %d used twice: %+v", r.Source, results)
		}
		seen[r.Source] = true
	}
	if results[2].Matched() {
		t.Fatalf("expected third cue to be unmatched once sources are exhausted, got %+v", results[2])
	}
}

func TestNearestTimeMaxDistance(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 1, "")})
	original := cue.MustIndex([]cue.Cue{mk(1, 5, 6, "")})
	cfg := match.DefaultConfig(match.StrategyNearestTime)
	cfg.NearestMaxDistance = 2 * time.Second
	if r := match.MatchAll(target, original, cfg)[0]; r.Matched() {
		t.Fatalf("expected no match beyond max distance, got %+v", r)
	}
}

func TestTextSimilarityAcceptsAboveThreshold(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 2, "Where are you going?"), mk(2, 2, 4, "Home.")})
	original := cue.MustIndex([]cue.Cue{
		mk(1, 10, 12, "Home."),
		mk(2, 20, 22, "where are you going"),
	})
	results := match.MatchAll(target, original, match.DefaultConfig(match.StrategyTextSimilarity))
	if results[0].Source != 1 || results[1].Source != 0 {
		t.Fatalf("unexpected matches: %+v", results)
	}
	if results[0].Score <= 0.4 || results[0].Score > 1 {
		t.Fatalf("score out of range: %v", results[0].Score)
	}
}

func TestTextSimilarityRejectsLowScores(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 1, "xyz"), mk(2, 1, 2, "qrs")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 1, "abc"), mk(2, 1, 2, "def")})
	for _, r := range match.MatchAll(target, original, match.DefaultConfig(match.StrategyTextSimilarity)) {
		if r.Matched() {
			t.Fatalf("expected no match, got %+v", r)
		}
	}
}

func TestTextSimilarityTieBreaksOnDistanceThenPosition(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 5, 6, "same")})
	original := cue.MustIndex([]cue.Cue{
		mk(1, 0, 1, "same"),
		mk(2, 4, 5, "same"),
		mk(3, 6, 7, "same"),
	})
	r := match.MatchAll(target, original, match.DefaultConfig(match.StrategyTextSimilarity))[0]
	if r.Source != 1 {
		t.Fatalf("expected closest earlier cue on distance tie, got %+v", r)
	}
}

func TestTextSimilarityWindowFollowsAnchor(t *testing.T) {
	cues := make([]cue.Cue, 0, 30)
	for i := 0; i < 30; i++ {
		cues = append(cues, mk(i+1, float64(i), float64(i)+1, "filler"))
	}
	cues[25].Text = "needle"
	original := cue.MustIndex(cues)
	cfg := match.DefaultConfig(match.StrategyTextSimilarity)
	cfg.Window = 3

	needle := mk(1, 25, 26, "needle")
	if r := match.Match(needle, 0, original, match.NewState(), cfg); r.Source == 25 {
		t.Fatal("cue outside the window must not be considered")
	}
	state := match.State{Anchor: 24}
	if r := match.Match(needle, 0, original, state, cfg); r.Source != 25 {
		t.Fatalf("expected match inside window, got %+v", r)
	}
}

func TestMatchDoesNotMutateState(t *testing.T) {
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 1, "a")})
	cfg := match.DefaultConfig(match.StrategyTextSimilarity)
	state := match.NewState()
	r := match.Match(mk(1, 0, 1, "a"), 0, original, state, cfg)
	if !r.Matched() {
		t.Fatal("expected match")
	}
	if state.Exclude.Len() != 0 {
		t.Fatal("Match mutated the exclusion set")
	}
	next := state.Advance(r, cfg)
	if !next.Exclude.Has(0) || state.Exclude.Has(0) {
		t.Fatal("Advance must return a new state")
	}
}

func TestNonExclusiveTextModeAllowsReuse(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 1, "hello"), mk(2, 1, 2, "hello")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 1, "hello")})
	cfg := match.DefaultConfig(match.StrategyTextSimilarity)
	cfg.Exclusive = false
	results := match.MatchAll(target, original, cfg)
	if results[0].Source != 0 || results[1].Source != 0 {
		t.Fatalf("expected reuse when exclusivity is off: %+v", results)
	}
}

func TestOverlapPrefersLargestOverlap(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 1, 4, "")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 1.5, ""), mk(2, 2, 5, "")})
	r := match.MatchAll(target, original, match.DefaultConfig(match.StrategyOverlap))[0]
	if r.Source != 1 {
		t.Fatalf("expected larger overlap to win, got %+v", r)
	}
}

func TestOverlapRequiresMinimum(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 1, "")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0.8, 2, "")})
	if r := match.MatchAll(target, original, match.DefaultConfig(match.StrategyOverlap))[0]; r.Matched() {
		t.Fatalf("expected overlap below minimum to be rejected, got %+v", r)
	}
}

func TestCumulativePairsByPosition(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 1, ""), mk(2, 4, 5, ""), mk(3, 6, 7, "")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 1, ""), mk(2, 5, 6, "")})
	results := match.MatchAll(target, original, match.DefaultConfig(match.StrategyCumulative))
	if results[1].Source != 1 || results[1].TimeDelta != sec(1) {
		t.Fatalf("unexpected positional match: %+v", results[1])
	}
	if results[2].Matched() {
		t.Fatal("expected cue beyond original length to be unmatched")
	}
}

func TestMatchAllIsDeterministic(t *testing.T) {
	target := cue.MustIndex([]cue.Cue{mk(1, 0, 2, "alpha"), mk(2, 2, 4, "beta"), mk(3, 4, 6, "gamma")})
	original := cue.MustIndex([]cue.Cue{mk(1, 0, 2, "alpha"), mk(2, 3, 5, "beta"), mk(3, 5, 6, "gamma ray")})
	for _, strategy := range match.Strategies {
		cfg := match.DefaultConfig(strategy)
		first := match.MatchAll(target, original, cfg)
		for i := 0; i < 5; i++ {
			if again := match.MatchAll(target, original, cfg); !reflect.DeepEqual(first, again) {
				t.Fatalf("%s: results differ between runs", strategy)
			}
		}
	}
}
