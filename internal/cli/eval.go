package cli

import (
	"fmt"
	"math/big"

	"github.com/spf13/cobra"

	"github.com/dustinober1/3x1-Project/internal/collatz"
	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/record"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Cutoff int64
}

// EvalResult is the eval command's output.
type EvalResult struct {
	Value         *big.Int `json:"value"`
	Steps         int64    `json:"steps"`
	Peak          *big.Int `json:"peak"`
	CutoffReached bool     `json:"cutoff_reached"`
	Digest        string   `json:"digest"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <n>",
		Short: "Evaluate one integer",
		Long: `Compute the step count and peak of one integer's trajectory.

Nothing is read from or written to the store. The digest shown is the key
the integer would be stored under.

Examples:
  hailstone eval 27
  hailstone eval 10^30 --cutoff 1000`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Cutoff, "cutoff", config.DefaultStepCutoff, "step limit")
	return cmd
}

func runEval(opts *EvalOptions, arg string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	n, err := config.ParseBigInt(arg)
	if err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid integer", err)
	}

	res, err := collatz.Evaluate(n, opts.Cutoff)
	if err != nil {
		_ = formatter.Error(ErrCodeInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "cannot evaluate", err)
	}

	result := EvalResult{
		Value:         n,
		Steps:         res.Steps,
		Peak:          res.Peak,
		CutoffReached: res.CutoffReached(),
		Digest:        record.DigestOf(n).String(),
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "%s\n", bigComma(n))
	fmt.Fprintf(w, "   Steps: %d\n", res.Steps)
	fmt.Fprintf(w, "   Peak: %s\n", bigComma(res.Peak))
	if result.CutoffReached {
		fmt.Fprintf(w, "   Stopped at the %d-step cutoff before reaching 1\n", opts.Cutoff)
	}
	fmt.Fprintf(w, "   Digest: %s\n", result.Digest)
	return nil
}
