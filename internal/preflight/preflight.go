package preflight

import (
	"context"

	"resplice/internal/config"
	"resplice/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	for _, status := range deps.CheckBinaries(ctx, deps.MediaToolchain(cfg.FFmpegBinary(), cfg.FFprobeBinary())) {
		results = append(results, fromStatus(status))
	}

	// Work directory (always checked)
	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))
	results = append(results, CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, cfg.Execution.MinFreeGiB))

	if cfg.Paths.OutputDir != "" {
		results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	}
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func fromStatus(status deps.Status) Result {
	if !status.Available {
		return Result{Name: status.Name, Detail: status.Detail}
	}
	detail := status.Path
	if status.Version != "" {
		detail = status.Version + " (" + status.Path + ")"
	}
	return Result{Name: status.Name, Passed: true, Detail: detail}
}
