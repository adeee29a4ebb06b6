package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"resplice/internal/cue"
	"resplice/internal/match"
	"resplice/internal/plan"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var original string
	var target string
	var strategyFlag string
	var mediaSeconds float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build the segment plan without touching any media",
		Long: "Match the target subtitles against the original ones and print the\n" +
			"resulting copy/freeze/trim ops and the per-cue report. Without\n" +
			"--media-duration the source is assumed to end with its last cue.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			orig, tgt, err := loadPair(cfg, original, target)
			if err != nil {
				return err
			}
			strategyName := cfg.Matching.Strategy
			if strategyFlag != "" {
				strategyName = strategyFlag
			}
			strategy, err := match.ParseStrategy(strategyName)
			if err != nil {
				return err
			}
			pcfg, err := cfg.PlanConfig()
			if err != nil {
				return err
			}
			if mediaSeconds < 0 {
				return fmt.Errorf("--media-duration must not be negative")
			}
			pcfg.MediaDuration = cue.Seconds(mediaSeconds)

			p, report, err := plan.Build(tgt, orig, strategy, pcfg)
			if err != nil && !plan.IsBuildError(err) {
				return err
			}
			if jsonOutput {
				if encErr := writeJSON(cmd, struct {
					Plan   *plan.Plan  `json:"plan"`
					Report plan.Report `json:"report"`
				}{p, report}); encErr != nil {
					return encErr
				}
				return err
			}

			out := cmd.OutOrStdout()
			printPlanSummary(out, p, report)
			fmt.Fprintln(out)
			printOps(out, p)
			fmt.Fprintln(out)
			printCueReport(out, report)
			return err
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "Subtitles timed to the video as it is")
	cmd.Flags().StringVar(&target, "target", "", "Subtitles with the desired timing")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "", "Override matching.strategy")
	cmd.Flags().Float64Var(&mediaSeconds, "media-duration", 0, "Source media length in seconds")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
