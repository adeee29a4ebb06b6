package retime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"resplice/internal/history"
	"resplice/internal/logging"
	"resplice/internal/plan"
)

// ReportSuffix is appended to the output path to name the report file.
const ReportSuffix = ".report.json"

func (r *Runner) recordStart(ctx context.Context, logger *slog.Logger, res Result) bool {
	if r.store == nil {
		return false
	}
	err := r.store.Start(ctx, history.Run{
		ID:          res.TaskID,
		TaskName:    res.Name,
		VideoPath:   res.Video,
		OriginalSRT: res.Original,
		TargetSRT:   res.Target,
		OutputPath:  res.Output,
		Strategy:    string(res.Strategy),
		Mode:        string(res.Mode),
		StartedAt:   res.StartedAt,
	})
	if err != nil {
		logger.Warn("run history unavailable",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_start_failed"),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
			logging.String(logging.FieldImpact, "this run will not appear in resplice history"),
		)
		return false
	}
	return true
}

func (r *Runner) recordFinish(ctx context.Context, logger *slog.Logger, res *Result) {
	run := history.Run{
		ID:         res.TaskID,
		OutputPath: res.Output,
		Status:     res.Status,
		Error:      res.Error,
		ErrorKind:  res.ErrorKind,
		CueCount:   len(res.Report.Cues),
		Matched:    res.Report.Matched,
		Unmatched:  res.Report.Unmatched,
		FinishedAt: res.FinishedAt,
		Cues:       cueRecords(res.Report),
	}
	if res.Plan != nil {
		run.OpCount = len(res.Plan.Ops)
		run.Planned = res.Plan.OutputDuration()
	}
	if res.Artifact != nil {
		run.Planned = res.Artifact.Planned
		run.Realized = res.Artifact.Realized
	} else {
		run.OutputPath = ""
	}
	// The task context may already be canceled; the outcome still needs saving.
	if err := r.store.Finish(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("run outcome not recorded",
			logging.Error(err),
			logging.String(logging.FieldEventType, "history_finish_failed"),
			logging.String(logging.FieldErrorHint, "check paths.history_db"),
			logging.String(logging.FieldImpact, "history shows this run as running"),
		)
	}
}

func cueRecords(report plan.Report) []history.CueRecord {
	out := make([]history.CueRecord, 0, len(report.Cues))
	for _, c := range report.Cues {
		rec := history.CueRecord{
			TargetIndex: c.TargetIndex,
			SourceIndex: -1,
			Status:      string(c.Status),
			Score:       c.Score,
			TimeDelta:   c.TimeDelta,
		}
		if c.Source >= 0 && c.Status != plan.StatusUnmatched {
			rec.SourceIndex = c.SourceIndex
		}
		if c.Clamped {
			rec.Note = "clamped"
		}
		out = append(out, rec)
	}
	return out
}

// writeReport stores res as JSON at <output>.report.json.
func writeReport(res *Result) error {
	res.ReportPath = res.Output + ReportSuffix
	if err := os.MkdirAll(filepath.Dir(res.ReportPath), 0o755); err != nil {
		res.ReportPath = ""
		return fmt.Errorf("create report directory: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(res.ReportPath, append(data, '\n'), 0o644); err != nil {
		res.ReportPath = ""
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport loads a report file written by a previous run.
func ReadReport(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("decode report %s: %w", path, err)
	}
	return res, nil
}
