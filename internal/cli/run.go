package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/session"
	"github.com/dustinober1/3x1-Project/internal/sessionlog"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	storeFlags

	ResultsLog         string
	Count              int64
	Min                string
	Max                string
	Cutoff             int64
	Seed               int64
	CheckpointFraction float64
	AttemptMultiplier  int64
	Top                int
	RecreateCorrupt    bool

	// IDGenerator allows overriding the session ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator session.IDGenerator

	// Now allows overriding the clock (for testing). If nil, time.Now.
	Now func() time.Time
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommandWith(&RunOptions{RootOptions: rootOpts})
}

func newRunCommandWith(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Test new random integers",
		Long: `Run one testing session.

Integers are drawn uniformly from [--min, --max]. Integers tested in any
earlier session are skipped. The session stops after --count new integers,
after --count x --attempt-multiplier draws, or on Ctrl-C; work done so far is
committed either way.

A summary block is appended to the results log.

Examples:
  hailstone run
  hailstone run --count 10000 --min 1e12 --max 1e13
  hailstone run --db ./tested.db --seed 42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(opts, cmd)
		},
	}

	fs := cmd.Flags()
	opts.storeFlags.register(fs)
	fs.StringVar(&opts.ResultsLog, "log", config.DefaultResultsLog, "session results log")
	fs.Int64VarP(&opts.Count, "count", "n", config.DefaultTargetNewTestCount, "number of new integers to test")
	fs.StringVar(&opts.Min, "min", "1e10", "smallest integer to draw (digits, 1e30 or 10^30)")
	fs.StringVar(&opts.Max, "max", "1e30", "largest integer to draw")
	fs.Int64Var(&opts.Cutoff, "cutoff", config.DefaultStepCutoff, "step limit per trajectory")
	fs.Int64Var(&opts.Seed, "seed", 0, "sampler seed (random when unset)")
	fs.Float64Var(&opts.CheckpointFraction, "checkpoint-fraction", config.DefaultCheckpointFraction, "commit every count x fraction new tests")
	fs.Int64Var(&opts.AttemptMultiplier, "attempt-multiplier", config.DefaultAttemptMultiplier, "give up after count x multiplier draws")
	fs.IntVar(&opts.Top, "top", config.DefaultTopN, "length of the session top lists")
	fs.BoolVar(&opts.RecreateCorrupt, "recreate-corrupt", false, "move a corrupt store aside and start empty")

	return cmd
}

func (o *RunOptions) apply(cmd *cobra.Command) func(*config.Config) error {
	return func(cfg *config.Config) error {
		fs := cmd.Flags()
		o.storeFlags.apply(fs, cfg)
		if fs.Changed("log") {
			cfg.ResultsLog = o.ResultsLog
		}
		if fs.Changed("count") {
			cfg.TargetNewTestCount = o.Count
		}
		if fs.Changed("min") {
			n, err := config.ParseBigInt(o.Min)
			if err != nil {
				return err
			}
			cfg.MinValue = config.BigInt{Int: n}
		}
		if fs.Changed("max") {
			n, err := config.ParseBigInt(o.Max)
			if err != nil {
				return err
			}
			cfg.MaxValue = config.BigInt{Int: n}
		}
		if fs.Changed("cutoff") {
			cfg.StepCutoff = o.Cutoff
		}
		if fs.Changed("seed") {
			seed := o.Seed
			cfg.Seed = &seed
		}
		if fs.Changed("checkpoint-fraction") {
			cfg.CheckpointIntervalFraction = o.CheckpointFraction
		}
		if fs.Changed("attempt-multiplier") {
			cfg.AttemptMultiplier = o.AttemptMultiplier
		}
		if fs.Changed("top") {
			cfg.TopN = o.Top
		}
		if fs.Changed("recreate-corrupt") {
			cfg.RecreateCorrupt = o.RecreateCorrupt
		}
		return nil
	}
}

func runSession(opts *RunOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, err := resolveConfig(opts.RootOptions, cmd, opts.apply(cmd))
	if err != nil {
		return err
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	slog.Info("opening store", "db", cfg.Database, "backend", cfg.Backend)
	st, err := openBackend(cfg, now())
	if err != nil {
		return formatter.Fail(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	ids := opts.IDGenerator
	if ids == nil {
		ids = session.UUIDv7Generator{}
	}
	driver, err := session.New(cfg, st,
		session.WithIDGenerator(ids),
		session.WithClock(now),
		session.WithLogger(slog.Default()),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, finishing session", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	summary, runErr := driver.Run(ctx)
	if summary == nil {
		return formatter.Fail(ExitFailure, "session failed to start", runErr)
	}

	if logErr := sessionlog.Append(cfg.ResultsLog, sessionlog.FromSummary(summary, now())); logErr != nil {
		slog.Error("failed to append results log", "path", cfg.ResultsLog, "error", logErr)
	}

	if opts.Format == "json" {
		if runErr != nil {
			_ = formatter.Error(errorCode(runErr), runErr.Error(), summary)
			return WrapExitError(ExitFailure, "session aborted", runErr)
		}
		return formatter.Success(summary)
	}

	writeReport(formatter.Writer, summary)
	if runErr != nil {
		return WrapExitError(ExitFailure, "session aborted", runErr)
	}
	return nil
}
