// Package match pairs each target cue with the source cue whose media slice
// should play in its place.
//
// Matching is a pure function of its inputs. The caller threads a State from
// one target cue to the next: Match never records which source cues it has
// handed out, State.Advance does. Four strategies are available:
//
//	text-similarity  windowed search scored on text and duration similarity
//	nearest-time     closest start time, each source cue used at most once
//	overlap          largest time overlap, each source cue used at most once
//	cumulative       positional pairing; drift is handled by package offset
package match
