// Package retime runs retime tasks end to end.
//
// A task loads the original and target subtitle files, probes the media,
// builds a segment plan, executes it in a private workspace and publishes
// the artifact. Every non-dry run writes <output>.report.json beside the
// artifact and, when a history store is attached, records the outcome and
// per-cue report. Batch runs fan tasks out under a concurrency limit bounded
// by CPU count and free disk space.
package retime
