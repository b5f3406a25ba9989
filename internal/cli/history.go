package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/sessionlog"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	ResultsLog string
	Last       int
}

// HistoryResult is the history command's output.
type HistoryResult struct {
	Log      string             `json:"log"`
	Sessions []sessionlog.Entry `json:"sessions"`
	Total    int64              `json:"total_new_tests"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past sessions",
		Long: `List the sessions recorded in the results log.

Examples:
  hailstone history
  hailstone history --last 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ResultsLog, "log", config.DefaultResultsLog, "session results log")
	cmd.Flags().IntVar(&opts.Last, "last", 0, "show only the last N sessions (0 = all)")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	path := opts.ResultsLog
	if !cmd.Flags().Changed("log") {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
		path = cfg.ResultsLog
	}

	entries, err := sessionlog.ReadFile(path)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to read results log", err)
	}

	var total int64
	recorded := len(entries)
	for _, e := range entries {
		total += e.NewTests
	}
	if opts.Last > 0 && len(entries) > opts.Last {
		entries = entries[len(entries)-opts.Last:]
	}
	if entries == nil {
		entries = []sessionlog.Entry{}
	}

	if opts.Format == "json" {
		return formatter.Success(HistoryResult{Log: path, Sessions: entries, Total: total})
	}

	w := formatter.Writer
	if len(entries) == 0 {
		fmt.Fprintf(w, "No sessions recorded in %s\n", path)
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s  %s new  %s total  avg %.2f  longest %s (%s)  peak %s (%s)\n",
			e.Timestamp.Format(sessionlog.TimeLayout),
			humanize.Comma(e.NewTests),
			humanize.Comma(e.TotalUnique),
			e.AverageSteps,
			humanize.Comma(e.LongestSteps),
			bigComma(e.LongestValue),
			bigComma(e.HighestPeak),
			bigComma(e.HighestPeakSource),
		)
	}
	fmt.Fprintf(w, "%d sessions recorded, %s numbers tested in total\n", recorded, humanize.Comma(total))
	return nil
}
