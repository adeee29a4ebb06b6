// Package history persists retime runs in SQLite.
//
// Each run records its inputs, strategy, execution mode, outcome status, and
// timings, alongside the per-cue match report so a run can be inspected after
// the fact with `resplice history show`. The store uses modernc.org/sqlite in
// WAL mode so concurrent batch tasks can record results without contention
// errors.
package history
