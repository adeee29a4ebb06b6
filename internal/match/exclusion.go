package match

import "math/bits"

// ExclusionSet is an immutable set of source cue positions. With returns a
// new set and leaves the receiver untouched.
type ExclusionSet struct {
	words []uint64
}

// Has reports whether pos is in the set.
func (s ExclusionSet) Has(pos int) bool {
	if pos < 0 {
		return false
	}
	w := pos / 64
	if w >= len(s.words) {
		return false
	}
	return s.words[w]&(1<<(uint(pos)%64)) != 0
}

// With returns a copy of the set that also contains pos.
func (s ExclusionSet) With(pos int) ExclusionSet {
	if pos < 0 || s.Has(pos) {
		return s
	}
	w := pos / 64
	n := len(s.words)
	if w >= n {
		n = w + 1
	}
	words := make([]uint64, n)
	copy(words, s.words)
	words[w] |= 1 << (uint(pos) % 64)
	return ExclusionSet{words: words}
}

// Len returns the number of positions in the set.
func (s ExclusionSet) Len() int {
	total := 0
	for _, w := range s.words {
		total += bits.OnesCount64(w)
	}
	return total
}
