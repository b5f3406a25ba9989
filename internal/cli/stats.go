package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/record"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	storeFlags
}

// StatsResult is the stats command's output.
type StatsResult struct {
	Database     string       `json:"database"`
	Backend      string       `json:"backend"`
	Tested       int64        `json:"tested"`
	AllTime      record.Stats `json:"all_time"`
	AverageSteps float64      `json:"average_steps"`
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show all-time records",
		Long: `Show the stored all-time record and the number of distinct integers tested.

Examples:
  hailstone stats
  hailstone stats --db ./tested.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(opts, cmd)
		},
	}

	opts.storeFlags.register(cmd.Flags())
	return cmd
}

func runStats(opts *StatsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	cfg, err := resolveExistingStore(opts.RootOptions, &opts.storeFlags, cmd, formatter)
	if err != nil {
		return err
	}

	st, err := openByName(cfg.Backend, cfg.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	all, err := st.LoadStats(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to load stats", err)
	}
	count, err := st.Count(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, "failed to count tested integers", err)
	}

	result := StatsResult{
		Database:     cfg.Database,
		Backend:      cfg.Backend,
		Tested:       count,
		AllTime:      all,
		AverageSteps: all.AverageSteps(),
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Store: %s (%s)\n", cfg.Database, cfg.Backend)
	fmt.Fprintf(w, "   Unique numbers tested: %s\n", humanize.Comma(count))
	fmt.Fprintf(w, "   Numbers in averages: %s\n", humanize.Comma(all.CumulativeSampleCount))
	fmt.Fprintf(w, "   All-time average steps: %.2f\n", result.AverageSteps)
	fmt.Fprintf(w, "   Longest sequence: %s steps (number: %s)\n",
		humanize.Comma(all.LongestSequenceSteps), bigComma(all.LongestSequenceValue))
	fmt.Fprintf(w, "   Highest peak: %s (from: %s)\n",
		bigComma(all.HighestPeakValue), bigComma(all.HighestPeakSourceValue))
	return nil
}

// resolveExistingStore resolves config for read-only commands and refuses
// to create a store that is not there.
func resolveExistingStore(opts *RootOptions, flags *storeFlags, cmd *cobra.Command, formatter *OutputFormatter) (config.Config, error) {
	cfg, err := resolveConfig(opts, cmd, func(c *config.Config) error {
		flags.apply(cmd.Flags(), c)
		return nil
	})
	if err != nil {
		return config.Config{}, err
	}
	if !storeExists(cfg.Database) {
		msg := fmt.Sprintf("no store at %s", cfg.Database)
		_ = formatter.Error(ErrCodeInput, msg, nil)
		return config.Config{}, NewExitError(ExitCommandError, msg)
	}
	return cfg, nil
}
