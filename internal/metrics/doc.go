// Package metrics provides Prometheus instrumentation for resplice.
//
// All metrics are prefixed with "resplice_" and registered with the default
// registry through promauto. resplice is a batch tool rather than a server, so
// metrics are exported by writing the default registry to a node_exporter
// textfile after each run (see [WriteTextfile]) instead of serving /metrics.
//
// # Metric Categories
//
// ## Run Metrics
//
//   - RunsTotal: Counter of retime runs by strategy and status
//   - RunDuration: Histogram of end-to-end run time by strategy
//   - CuesTotal: Counter of target cues by strategy and report status
//   - BatchTasksInFlight: Gauge of batch tasks currently running
//
// ## Splice Metrics
//
//   - SpliceOpsTotal: Counter of executed ops by kind and status
//   - SpliceOpDuration: Histogram of op execution time by kind
//   - SpliceDriftSeconds: Gauge of |realized - planned| output duration for the last run
//
// # Recording Metrics
//
// The splice executor reports through the observer returned by
// [NewSpliceObserver]; the retime runner calls [ObserveRun] once per task.
//
// # Prometheus Queries
//
// Unmatched cue rate per strategy:
//
//	sum(rate(resplice_cues_total{status="unmatched"}[1d])) by (strategy) /
//	sum(rate(resplice_cues_total[1d])) by (strategy)
package metrics
