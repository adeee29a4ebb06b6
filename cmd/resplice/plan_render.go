package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"resplice/internal/plan"
)

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func printOps(w io.Writer, p *plan.Plan) {
	if p == nil || len(p.Ops) == 0 {
		fmt.Fprintln(w, "Plan is empty")
		return
	}
	rows := make([][]string, 0, len(p.Ops))
	for i, op := range p.Ops {
		var from, to, length string
		switch op.Kind {
		case plan.OpCopy:
			from, to = formatSeconds(op.Start), formatSeconds(op.End)
		case plan.OpFreeze, plan.OpTrim:
			from = formatSeconds(op.At)
			length = formatSeconds(op.Length)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(op.Kind),
			from,
			to,
			length,
			formatSeconds(op.Duration()),
		})
	}
	printTable(w,
		[]string{"#", "Op", "From", "To", "Length", "Duration"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}

func printCueReport(w io.Writer, report plan.Report) {
	if len(report.Cues) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Cues))
	for _, c := range report.Cues {
		source := "-"
		if c.Source >= 0 && c.Status != plan.StatusUnmatched {
			source = strconv.Itoa(c.SourceIndex)
		}
		status := string(c.Status)
		if c.Clamped {
			status += " (clamped)"
		}
		rows = append(rows, []string{
			strconv.Itoa(c.TargetIndex),
			formatSeconds(c.TargetStart),
			formatSeconds(c.TargetEnd),
			source,
			formatScore(c.Score),
			formatSeconds(c.TimeDelta),
			formatSeconds(c.Adjustment),
			status,
		})
	}
	printTable(w,
		[]string{"Cue", "Start", "End", "Source", "Score", "Delta", "Adjust", "Status"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
	)
}

func printPlanSummary(w io.Writer, p *plan.Plan, report plan.Report) {
	fmt.Fprintf(w, "Strategy: %s\n", report.Strategy)
	fmt.Fprintf(w, "Matched: %d/%d (%.0f%%)\n", report.Matched, report.Matched+report.Unmatched, report.MatchRate()*100)
	if p != nil {
		fmt.Fprintf(w, "Ops: %d  Output: %ss  Target: %ss\n",
			len(p.Ops), formatSeconds(p.OutputDuration()), formatSeconds(p.TargetDuration))
		if p.Iterative {
			fmt.Fprintf(w, "Final offset: %ss\n", formatSeconds(p.FinalOffset))
		}
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintf(w, "warning: cue %d: %s\n", d.Target, d.Message)
	}
}
