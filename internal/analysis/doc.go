// Package analysis compares two subtitle timelines cue by cue.
//
// Compare pairs cues positionally (the i-th original cue with the i-th
// target cue) and reports start, end and duration deltas with summary
// statistics. Profile summarizes a single timeline. Neither touches media;
// both are used to judge whether a retime is needed and which strategy fits.
package analysis
