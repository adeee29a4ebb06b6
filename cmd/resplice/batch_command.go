package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"resplice/internal/history"
	"resplice/internal/retime"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var parallel int
	var reportPath string
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "batch <manifest.toml>",
		Short: "Run every task in a TOML manifest",
		Long: "Run the [[task]] entries of a manifest in parallel. A failing task\n" +
			"does not stop the others; the command exits non-zero when any task failed.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if parallel < 0 {
				return fmt.Errorf("--parallel must not be negative")
			}
			manifest, err := retime.LoadManifest(args[0], cfg.Paths.OutputDir)
			if err != nil {
				return err
			}
			reqs := manifest.Requests()
			for i := range reqs {
				reqs[i].DryRun = dryRun
			}

			var report retime.BatchReport
			if err := ctx.withHistory(func(store *history.Store) error {
				runner := retime.New(cfg, logger, retime.WithHistory(store))
				report = runner.RunBatch(cmd.Context(), reqs, parallel)
				return nil
			}); err != nil {
				return err
			}
			if reportPath != "" {
				if err := retime.WriteBatchReport(reportPath, report); err != nil {
					return err
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				printBatch(cmd.OutOrStdout(), report)
			}
			if err := cmd.Context().Err(); err != nil {
				return err
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d of %d tasks failed", report.Failed, report.Total)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "j", 0, "Concurrent tasks (default execution.max_parallel)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write the batch report as JSON to this path")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan every task without touching media")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func printBatch(w io.Writer, report retime.BatchReport) {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		status := string(res.Status)
		if status == "" {
			status = "planned"
		}
		detail := res.Output
		if res.Error != "" {
			detail = res.Error
		}
		rows = append(rows, []string{
			res.Name,
			status,
			fmt.Sprintf("%d/%d", res.Report.Matched, res.Report.Matched+res.Report.Unmatched),
			res.Elapsed().Round(10 * time.Millisecond).String(),
			detail,
		})
	}
	printTable(w,
		[]string{"Task", "Status", "Matched", "Elapsed", "Output / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
	fmt.Fprintf(w, "%d tasks: %d succeeded, %d failed (parallel %d)\n",
		report.Total, report.Successful, report.Failed, report.Parallel)
}
