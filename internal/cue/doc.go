// Package cue models subtitle cues and the immutable ordered index the
// matcher and plan builder search over.
//
// An Index never mutates after construction. Out-of-order start times are
// tolerated: lookups that rely on ordering use a start-sorted view, while
// positional access keeps the caller's order so cumulative alignment can pair
// cues by position.
package cue
