package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"resplice/internal/splice"
)

// spliceObserver implements splice.Observer using the Prometheus metrics
// declared in this package.
type spliceObserver struct{}

// NewSpliceObserver creates an observer that records splice executor metrics.
func NewSpliceObserver() splice.Observer {
	return spliceObserver{}
}

func (spliceObserver) ObserveOp(kind string, duration time.Duration, err error) {
	SpliceOpDuration.WithLabelValues(kind).Observe(duration.Seconds())
	SpliceOpsTotal.WithLabelValues(kind, outcome(err)).Inc()
}

func (spliceObserver) ObserveDrift(drift time.Duration) {
	if drift < 0 {
		drift = -drift
	}
	SpliceDriftSeconds.Set(drift.Seconds())
}

// ObserveRun records one finished retime run. cues maps report status to count.
func ObserveRun(strategy, status string, elapsed time.Duration, cues map[string]int) {
	RunsTotal.WithLabelValues(strategy, status).Inc()
	RunDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	for cueStatus, n := range cues {
		CuesTotal.WithLabelValues(strategy, cueStatus).Add(float64(n))
	}
}

// WriteTextfile writes every registered metric to path in the Prometheus text
// format. The write is atomic, as the textfile collector requires.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
