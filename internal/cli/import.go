package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/legacy"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	storeFlags

	JSONPath  string
	NoBackup  bool
	BatchSize int

	// Now allows overriding the clock used to name backups (for testing).
	Now func() time.Time
}

// ImportResult is the import command's output.
type ImportResult struct {
	legacy.Report
	Source string `json:"source"`
	Backup string `json:"backup,omitempty"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	return newImportCommandWith(&ImportOptions{RootOptions: rootOpts})
}

func newImportCommandWith(opts *ImportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a legacy JSON snapshot",
		Long: `Import tested integers and all-time statistics from a legacy JSON snapshot.

An existing store is backed up to <db>.backup.YYYYMMDD_HHMMSS first unless
--no-backup is given. Integers already in the store are counted as
duplicates. The snapshot's all_time_stats replaces the stored record.

Examples:
  hailstone import --json collatz_tested_numbers.json
  hailstone import --json old.json --db ./tested.db --no-backup`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd)
		},
	}

	opts.storeFlags.register(cmd.Flags())
	cmd.Flags().StringVar(&opts.JSONPath, "json", "", "legacy snapshot to import (required)")
	_ = cmd.MarkFlagRequired("json")
	cmd.Flags().BoolVar(&opts.NoBackup, "no-backup", false, "skip backing up an existing store")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", legacy.DefaultBatchSize, "integers per insert transaction")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	cfg, err := resolveConfig(opts.RootOptions, cmd, func(c *config.Config) error {
		opts.storeFlags.apply(cmd.Flags(), c)
		return nil
	})
	if err != nil {
		return err
	}

	if _, err := os.Stat(opts.JSONPath); err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "nothing to import", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	existed := storeExists(cfg.Database)
	st, err := openBackend(cfg, now())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	result := ImportResult{Source: opts.JSONPath}
	if existed && !opts.NoBackup {
		result.Backup = legacy.BackupPath(cfg.Database, now())
		slog.Info("backing up store", "db", cfg.Database, "backup", result.Backup)
		if err := st.Backup(ctx, result.Backup); err != nil {
			return formatter.Fail(ExitFailure, "backup failed", err)
		}
	}

	report, err := legacy.ImportFile(ctx, opts.JSONPath, st,
		legacy.WithBatchSize(opts.BatchSize),
		legacy.WithLogger(slog.Default()),
	)
	result.Report = report
	if errors.Is(err, legacy.ErrSourceMissing) {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "nothing to import", err)
	}
	if err != nil {
		return formatter.Fail(ExitFailure, "import failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Imported %s into %s\n", opts.JSONPath, cfg.Database)
	if result.Backup != "" {
		fmt.Fprintf(w, "   Backup: %s\n", result.Backup)
	}
	fmt.Fprintf(w, "   Numbers imported: %s\n", humanize.Comma(report.Imported))
	fmt.Fprintf(w, "   Duplicates skipped: %s\n", humanize.Comma(report.Duplicates))
	fmt.Fprintf(w, "   All-time statistics installed: %t\n", report.StatsInstalled)
	fmt.Fprintf(w, "   Store now holds: %s tested numbers\n", humanize.Comma(report.Count))
	return nil
}
