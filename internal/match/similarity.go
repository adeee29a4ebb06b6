package match

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds case and compatibility forms and collapses whitespace.
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// TextSimilarity returns the Ratcliff/Obershelp ratio of the normalized texts
// compared rune by rune. Empty text on either side scores zero.
func TextSimilarity(a, b string) float64 {
	a, b = NormalizeText(a), NormalizeText(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return difflib.NewMatcher(runes(a), runes(b)).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// DurationSimilarity is 1 - |a-b|/max(a,b), floored at zero. Two empty
// durations are identical.
func DurationSimilarity(a, b float64) float64 {
	longest := a
	if b > longest {
		longest = b
	}
	if longest <= 0 {
		return 1
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	sim := 1 - diff/longest
	if sim < 0 {
		return 0
	}
	return sim
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
