package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	storeFlags
}

// CheckResult is the check command's output.
type CheckResult struct {
	Database string `json:"database"`
	Backend  string `json:"backend"`
	OK       bool   `json:"ok"`
	Tested   int64  `json:"tested"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify store integrity",
		Long: `Run a full integrity check of the store.

Exits 0 when the store is sound and 1 when it is corrupt. A corrupt store is
never modified; use "hailstone run --recreate-corrupt" to move it aside.

Examples:
  hailstone check
  hailstone check --db ./kv --backend badger`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, cmd)
		},
	}

	opts.storeFlags.register(cmd.Flags())
	return cmd
}

func runCheck(opts *CheckOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	cfg, err := resolveExistingStore(opts.RootOptions, &opts.storeFlags, cmd, formatter)
	if err != nil {
		return err
	}

	st, err := openByName(cfg.Backend, cfg.Database)
	if err != nil {
		return formatter.Fail(ExitFailure, "store check failed", err)
	}
	defer st.Close()

	if err := st.Check(ctx); err != nil {
		return formatter.Fail(ExitFailure, "store check failed", err)
	}
	count, err := st.Count(ctx)
	if err != nil {
		return formatter.Fail(ExitFailure, "store check failed", err)
	}

	result := CheckResult{Database: cfg.Database, Backend: cfg.Backend, OK: true, Tested: count}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is sound (%d tested numbers)\n", cfg.Database, count)
	return nil
}
