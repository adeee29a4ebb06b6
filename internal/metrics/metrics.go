package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run metrics
var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resplice_runs_total",
			Help: "Total number of retime runs",
		},
		[]string{"strategy", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resplice_run_duration_seconds",
			Help:    "End-to-end retime run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		},
		[]string{"strategy"},
	)

	CuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resplice_cues_total",
			Help: "Total number of target cues processed, by match report status",
		},
		[]string{"strategy", "status"},
	)

	BatchTasksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resplice_batch_tasks_in_flight",
			Help: "Number of batch tasks currently running",
		},
	)
)

// Splice metrics
var (
	SpliceOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resplice_splice_ops_total",
			Help: "Total number of executed splice operations",
		},
		[]string{"kind", "status"},
	)

	SpliceOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "resplice_splice_op_duration_seconds",
			Help:    "Splice operation duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	SpliceDriftSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resplice_splice_drift_seconds",
			Help: "Absolute difference between realized and planned output duration for the last run",
		},
	)
)
