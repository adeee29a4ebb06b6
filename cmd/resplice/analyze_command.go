package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"resplice/internal/analysis"
	"resplice/internal/cue"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var original string
	var target string
	var shiftedSeconds float64
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compare two subtitle timelines cue by cue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			orig, tgt, err := loadPair(cfg, original, target)
			if err != nil {
				return err
			}
			comparison := analysis.Compare(orig, tgt)
			if jsonOutput {
				return writeJSON(cmd, struct {
					Original   analysis.Profile    `json:"original"`
					Target     analysis.Profile    `json:"target"`
					Comparison analysis.Comparison `json:"comparison"`
				}{analysis.ProfileOf(orig), analysis.ProfileOf(tgt), comparison})
			}

			out := cmd.OutOrStdout()
			printProfiles(out, analysis.ProfileOf(orig), analysis.ProfileOf(tgt))
			fmt.Fprintln(out)
			printSummary(out, comparison.Summary)
			if shiftedSeconds > 0 {
				shifted := comparison.Shifted(cue.Seconds(shiftedSeconds))
				fmt.Fprintf(out, "\nCues shifted by more than %ss: %d\n",
					strconv.FormatFloat(shiftedSeconds, 'f', -1, 64), len(shifted))
				printDeltas(out, comparison, shifted)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "Subtitles timed to the video as it is")
	cmd.Flags().StringVar(&target, "target", "", "Subtitles with the desired timing")
	cmd.Flags().Float64Var(&shiftedSeconds, "shifted", 0.5, "List cues whose start moved by more than this many seconds (0 hides)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func printProfiles(w io.Writer, original, target analysis.Profile) {
	row := func(label string, p analysis.Profile) []string {
		return []string{
			label,
			strconv.Itoa(p.Count),
			p.Total.String(),
			p.AvgDuration.String(),
			p.MinDuration.String(),
			p.MaxDuration.String(),
			p.AvgGap.String(),
		}
	}
	printTable(w,
		[]string{"Timeline", "Cues", "Total", "Avg", "Min", "Max", "Avg gap"},
		[][]string{row("original", original), row("target", target)},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}

func printSummary(w io.Writer, s analysis.Summary) {
	fmt.Fprintf(w, "Compared %d cues (original %d, target %d)\n", s.Compared, s.OriginalCount, s.TargetCount)
	row := func(label string, st analysis.Stats) []string {
		return []string{label, st.Min.String(), st.Max.String(), st.Avg.String()}
	}
	printTable(w,
		[]string{"Offset", "Min", "Max", "Avg"},
		[][]string{row("start", s.Start), row("end", s.End), row("duration", s.Duration)},
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	)
}

func printDeltas(w io.Writer, c analysis.Comparison, indices []int) {
	if len(indices) == 0 {
		return
	}
	rows := make([][]string, 0, len(indices))
	for _, pos := range indices {
		d := c.Details[pos-1]
		rows = append(rows, []string{
			strconv.Itoa(d.Index),
			d.Original.Start.String(),
			d.Target.Start.String(),
			d.StartDelta.String(),
			d.DurationDelta.String(),
		})
	}
	printTable(w,
		[]string{"#", "Original", "Target", "Start delta", "Duration delta"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
	)
}
