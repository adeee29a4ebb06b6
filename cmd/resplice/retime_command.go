package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"resplice/internal/history"
	"resplice/internal/media"
	"resplice/internal/retime"
)

func newRetimeCommand(ctx *commandContext) *cobra.Command {
	var req retime.Request
	var jsonOutput bool
	var embed string

	cmd := &cobra.Command{
		Use:   "retime <video>",
		Short: "Re-time a video so the original subtitles follow the target timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			req.Video = args[0]
			if cmd.Flags().Changed("embed") {
				value, err := media.ParseEmbed(embed)
				if err != nil {
					return fmt.Errorf("--embed: %w", err)
				}
				cfg.Output.EmbedSubtitles = string(value)
			}

			var res retime.Result
			var runErr error
			run := func(opts ...retime.Option) {
				res, runErr = retime.New(cfg, logger, opts...).Run(cmd.Context(), req)
			}
			if req.DryRun {
				run()
			} else if err := ctx.withHistory(func(store *history.Store) error {
				run(retime.WithHistory(store))
				return nil
			}); err != nil {
				return err
			}

			if jsonOutput {
				if err := writeJSON(cmd, res); err != nil {
					return err
				}
				return runErr
			}
			printResult(cmd.OutOrStdout(), res, req.DryRun)
			return runErr
		},
	}

	cmd.Flags().StringVar(&req.Original, "original", "", "Subtitles timed to the video as it is")
	cmd.Flags().StringVar(&req.Target, "target", "", "Subtitles with the desired timing")
	cmd.Flags().StringVarP(&req.Output, "output", "o", "", "Output path (default <video>.resplice<ext>)")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "", "Override matching.strategy")
	cmd.Flags().StringVar(&req.Mode, "mode", "", "Override execution.mode (stream-copy or precise)")
	cmd.Flags().StringVar(&embed, "embed", "", "Override output.embed_subtitles (none, soft or hard)")
	cmd.Flags().BoolVar(&req.DryRun, "dry-run", false, "Plan only; do not touch media")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func printResult(w io.Writer, res retime.Result, dryRun bool) {
	if res.Plan != nil || len(res.Report.Cues) > 0 {
		printPlanSummary(w, res.Plan, res.Report)
	}
	if dryRun && res.Error == "" {
		fmt.Fprintln(w)
		printOps(w, res.Plan)
		fmt.Fprintln(w)
		printCueReport(w, res.Report)
		return
	}
	if res.Status != "" {
		fmt.Fprintf(w, "Status: %s\n", res.Status)
	}
	if res.Artifact != nil {
		fmt.Fprintf(w, "Output: %s (%ss)\n", res.Artifact.Path, formatSeconds(res.Artifact.Realized))
	}
	if res.Embed != "" {
		fmt.Fprintf(w, "Subtitles: %s\n", res.Embed)
	}
	if res.ReportPath != "" {
		fmt.Fprintf(w, "Report: %s\n", res.ReportPath)
	}
	fmt.Fprintf(w, "Task: %s  Elapsed: %s\n", res.TaskID, res.Elapsed().Round(10*time.Millisecond))
}
