package match

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a target cue finds its source cue.
type Strategy string

const (
	StrategyTextSimilarity Strategy = "text-similarity"
	StrategyNearestTime    Strategy = "nearest-time"
	StrategyOverlap        Strategy = "overlap"
	StrategyCumulative     Strategy = "cumulative"
)

// Strategies lists every supported strategy in display order.
var Strategies = []Strategy{StrategyTextSimilarity, StrategyNearestTime, StrategyOverlap, StrategyCumulative}

// ParseStrategy resolves a strategy name or one of its aliases.
func ParseStrategy(value string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "text-similarity", "text", "similarity", "timeline-align":
		return StrategyTextSimilarity, nil
	case "nearest-time", "nearest", "avoid-duplicate":
		return StrategyNearestTime, nil
	case "overlap":
		return StrategyOverlap, nil
	case "cumulative", "iterative":
		return StrategyCumulative, nil
	default:
		return "", fmt.Errorf("unknown matching strategy %q", value)
	}
}

// Config holds the matcher tunables.
type Config struct {
	Strategy Strategy
	// Window is the search radius, in cues, around the previous match.
	Window          int
	TextWeight      float64
	DurationWeight  float64
	AcceptThreshold float64
	// MinTextSimilarity discards candidates before scoring. Zero disables it.
	MinTextSimilarity float64
	// NearestMaxDistance bounds nearest-time matches. Zero means unbounded.
	NearestMaxDistance time.Duration
	MinOverlap         time.Duration
	// Exclusive forbids reusing a source cue in text-similarity mode. The
	// nearest-time and overlap strategies are always exclusive.
	Exclusive bool
}

const (
	DefaultWindow          = 10
	DefaultTextWeight      = 0.7
	DefaultDurationWeight  = 0.3
	DefaultAcceptThreshold = 0.4
	DefaultMinOverlap      = 300 * time.Millisecond
)

// DefaultConfig returns the stock matcher configuration for strategy.
func DefaultConfig(strategy Strategy) Config {
	return Config{
		Strategy:        strategy,
		Window:          DefaultWindow,
		TextWeight:      DefaultTextWeight,
		DurationWeight:  DefaultDurationWeight,
		AcceptThreshold: DefaultAcceptThreshold,
		MinOverlap:      DefaultMinOverlap,
		Exclusive:       true,
	}
}

// Validate checks the configuration for impossible values.
func (c Config) Validate() error {
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.Window < 0 {
		return errors.New("matching window must be >= 0")
	}
	if c.TextWeight < 0 || c.DurationWeight < 0 {
		return errors.New("matching weights must be >= 0")
	}
	if c.TextWeight+c.DurationWeight <= 0 {
		return errors.New("matching weights must not both be zero")
	}
	if c.AcceptThreshold < 0 || c.AcceptThreshold > 1 {
		return errors.New("matching accept threshold must be between 0 and 1")
	}
	if c.MinTextSimilarity < 0 || c.MinTextSimilarity > 1 {
		return errors.New("matching min text similarity must be between 0 and 1")
	}
	if c.NearestMaxDistance < 0 || c.MinOverlap < 0 {
		return errors.New("matching distances must be >= 0")
	}
	return nil
}

func (c Config) exclusive() bool {
	switch c.Strategy {
	case StrategyNearestTime, StrategyOverlap:
		return true
	case StrategyCumulative:
		return false
	default:
		return c.Exclusive
	}
}
