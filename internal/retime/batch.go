package retime

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"resplice/internal/logging"
	"resplice/internal/metrics"
	"resplice/internal/preflight"
	"resplice/internal/services"
)

// BatchReport summarizes a batch run.
type BatchReport struct {
	ID         string    `json:"id"`
	Total      int       `json:"total"`
	Successful int       `json:"successful"`
	Failed     int       `json:"failed"`
	Parallel   int       `json:"parallel"`
	Results    []Result  `json:"results"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// RunBatch executes every request, at most parallel at a time. A
// non-positive parallel uses the configured limit. Task failures are recorded
// in the report and do not stop the others; only ctx cancellation does.
func (r *Runner) RunBatch(ctx context.Context, reqs []Request, parallel int) BatchReport {
	limit := r.ParallelLimit(parallel)
	report := BatchReport{
		ID:        uuid.NewString(),
		Total:     len(reqs),
		Parallel:  limit,
		Results:   make([]Result, len(reqs)),
		StartedAt: time.Now().UTC(),
	}
	ctx = services.WithRequestID(ctx, report.ID)
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("tasks", len(reqs)),
		logging.Int("parallel", limit),
	)

	var g errgroup.Group
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			metrics.BatchTasksInFlight.Inc()
			defer metrics.BatchTasksInFlight.Dec()
			res, _ := r.Run(ctx, req)
			report.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range report.Results {
		if res.Succeeded() {
			report.Successful++
		} else {
			report.Failed++
		}
	}
	report.FinishedAt = time.Now().UTC()
	logger.Info("batch finished",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("successful", report.Successful),
		logging.Int("failed", report.Failed),
		logging.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report
}

// ParallelLimit resolves the batch concurrency: requested, else
// execution.max_parallel, else half the CPUs. When execution.min_free_gib is
// set, the limit is capped so each running task can count on that much free
// space in the work directory.
func (r *Runner) ParallelLimit(requested int) int {
	n := requested
	if n <= 0 {
		n = r.cfg.Execution.MaxParallel
	}
	if n <= 0 {
		n = max(runtime.NumCPU()/2, 1)
	}
	perTask := uint64(r.cfg.Execution.MinFreeGiB) << 30
	if perTask == 0 {
		return n
	}
	free, err := preflight.FreeBytes(r.cfg.Paths.WorkDir)
	if err != nil {
		r.logger.Debug("free space unknown; concurrency not capped", logging.Error(err))
		return n
	}
	if byDisk := int(free / perTask); byDisk < n {
		logging.WarnWithContext(r.logger, "batch concurrency capped by free disk space", "disk_capped",
			logging.Int("requested", n),
			logging.Int("allowed", max(byDisk, 1)),
			logging.String(logging.FieldErrorHint, "free space in paths.work_dir or lower execution.min_free_gib"),
			logging.String(logging.FieldImpact, "batch runs slower"),
		)
		n = max(byDisk, 1)
	}
	return n
}

// WriteBatchReport stores report as indented JSON.
func WriteBatchReport(path string, report BatchReport) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create batch report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode batch report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write batch report: %w", err)
	}
	return nil
}
