package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"resplice/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded retime runs",
	}
	cmd.AddCommand(newHistoryListCommand(ctx))
	cmd.AddCommand(newHistoryShowCommand(ctx))
	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := history.ListOptions{Limit: limit}
			if statusFlag != "" {
				status, err := history.ParseStatus(statusFlag)
				if err != nil {
					return err
				}
				opts.Status = status
			}
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), opts)
				if err != nil {
					return err
				}
				if jsonOutput {
					if runs == nil {
						runs = []history.Run{}
					}
					return writeJSON(cmd, runs)
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&statusFlag, "status", "", "Only runs with this status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run and its per-cue outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, history.ErrRunNotFound) {
					return fmt.Errorf("no run matches %q", args[0])
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, run)
				}
				printRun(cmd.OutOrStdout(), *run)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete finished runs older than a cutoff",
		Long: "Delete finished runs that started before the cutoff. Runs still marked\n" +
			"running from before the cutoff are treated as abandoned and marked failed first.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			age, err := parseAge(olderThan)
			if err != nil {
				return err
			}
			cutoff := time.Now().Add(-age)
			return ctx.withHistory(func(store *history.Store) error {
				abandoned, err := store.MarkAbandoned(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				removed, err := store.Prune(cmd.Context(), cutoff)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d runs (%d abandoned)\n", removed, abandoned)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&olderThan, "older-than", "30d", "Age cutoff, e.g. 12h or 30d")
	return cmd
}

// parseAge accepts Go durations plus a whole-day "Nd" form.
func parseAge(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid age %q", value)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid age %q", value)
	}
	return d, nil
}

func printRuns(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			string(run.Status),
			run.Strategy,
			fmt.Sprintf("%d/%d", run.Matched, run.CueCount),
			run.Elapsed().Round(time.Second).String(),
			runLabel(run),
		})
	}
	printTable(w,
		[]string{"ID", "Started", "Status", "Strategy", "Matched", "Elapsed", "Task"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func printRun(w io.Writer, run history.Run) {
	fmt.Fprintf(w, "ID:        %s\n", run.ID)
	fmt.Fprintf(w, "Task:      %s\n", runLabel(run))
	fmt.Fprintf(w, "Status:    %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "Error:     %s (%s)\n", run.Error, run.ErrorKind)
	}
	fmt.Fprintf(w, "Video:     %s\n", run.VideoPath)
	fmt.Fprintf(w, "Original:  %s\n", run.OriginalSRT)
	fmt.Fprintf(w, "Target:    %s\n", run.TargetSRT)
	if run.OutputPath != "" {
		fmt.Fprintf(w, "Output:    %s\n", run.OutputPath)
	}
	fmt.Fprintf(w, "Strategy:  %s  Mode: %s\n", run.Strategy, run.Mode)
	fmt.Fprintf(w, "Cues:      %d matched, %d unmatched, %d ops\n", run.Matched, run.Unmatched, run.OpCount)
	fmt.Fprintf(w, "Duration:  planned %ss, realized %ss\n", formatSeconds(run.Planned), formatSeconds(run.Realized))
	fmt.Fprintf(w, "Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(w, "Finished:  %s (%s)\n", run.FinishedAt.Local().Format(time.RFC3339), run.Elapsed().Round(time.Millisecond))
	}
	if len(run.Cues) == 0 {
		return
	}
	fmt.Fprintln(w)
	rows := make([][]string, 0, len(run.Cues))
	for _, c := range run.Cues {
		source := "-"
		if c.SourceIndex >= 0 {
			source = strconv.Itoa(c.SourceIndex)
		}
		rows = append(rows, []string{
			strconv.Itoa(c.TargetIndex),
			source,
			c.Status,
			formatScore(c.Score),
			formatSeconds(c.TimeDelta),
			c.Note,
		})
	}
	printTable(w,
		[]string{"Cue", "Source", "Status", "Score", "Delta", "Note"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func runLabel(run history.Run) string {
	if run.TaskName != "" {
		return run.TaskName
	}
	return run.VideoPath
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
