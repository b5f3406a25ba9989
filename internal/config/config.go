// Package config loads and validates hailstone settings.
//
// Settings come from three layers, later layers winning:
//  1. Default()
//  2. an optional YAML file (Load)
//  3. command-line flags applied by the cli package
//
// Validate runs after all layers are applied.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Backend names.
const (
	BackendSQLite     = "sqlite"      // SQLite via github.com/mattn/go-sqlite3
	BackendSQLitePure = "sqlite-pure" // SQLite via modernc.org/sqlite
	BackendBadger     = "badger"      // BadgerDB directory
)

// Defaults matching the long-running tool's historical behaviour.
const (
	DefaultDatabase           = "collatz_tested.db"
	DefaultResultsLog         = "collatz_results_log.txt"
	DefaultTargetNewTestCount = 1_000_000
	DefaultStepCutoff         = 100_000
	DefaultCheckpointFraction = 1.0 / 20
	DefaultAttemptMultiplier  = 100
	DefaultTopN               = 10
)

// Config is the complete set of settings for one session.
type Config struct {
	Database   string `yaml:"database"`
	Backend    string `yaml:"backend"`
	ResultsLog string `yaml:"results_log"`

	TargetNewTestCount         int64   `yaml:"target_new_test_count"`
	MinValue                   BigInt  `yaml:"min_value"`
	MaxValue                   BigInt  `yaml:"max_value"`
	StepCutoff                 int64   `yaml:"step_cutoff"`
	CheckpointIntervalFraction float64 `yaml:"checkpoint_interval_fraction"`
	AttemptMultiplier          int64   `yaml:"attempt_multiplier"`

	// Seed fixes the sampler. Nil means seed from the clock.
	Seed *int64 `yaml:"seed,omitempty"`

	TopN            int  `yaml:"top_n"`
	RecreateCorrupt bool `yaml:"recreate_corrupt"`
}

// Default returns the default configuration: one million new tests drawn
// from [10^10, 10^30].
func Default() Config {
	return Config{
		Database:                   DefaultDatabase,
		Backend:                    BackendSQLite,
		ResultsLog:                 DefaultResultsLog,
		TargetNewTestCount:         DefaultTargetNewTestCount,
		MinValue:                   BigInt{pow10(10)},
		MaxValue:                   BigInt{pow10(30)},
		StepCutoff:                 DefaultStepCutoff,
		CheckpointIntervalFraction: DefaultCheckpointFraction,
		AttemptMultiplier:          DefaultAttemptMultiplier,
		TopN:                       DefaultTopN,
	}
}

// Load reads a YAML file over Default(). Unknown keys are rejected.
// An empty path returns Default() unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema and the big-integer
// range rules (1 <= min_value <= max_value).
func (c Config) Validate() error {
	if err := validateSchema(c); err != nil {
		return err
	}

	if c.MinValue.Int == nil || c.MaxValue.Int == nil {
		return errors.New("invalid config: min_value and max_value are required")
	}
	if c.MinValue.Sign() < 1 {
		return errors.New("invalid config: min_value must be >= 1")
	}
	if c.MaxValue.Cmp(c.MinValue.Int) < 0 {
		return fmt.Errorf("invalid config: max_value %s is below min_value %s", c.MaxValue.String(), c.MinValue.String())
	}
	if c.TargetNewTestCount > math.MaxInt64/c.AttemptMultiplier {
		return errors.New("invalid config: target_new_test_count * attempt_multiplier overflows")
	}
	return nil
}

// CheckpointInterval returns the number of new tests between checkpoints:
// floor(target * fraction), at least 1.
func (c Config) CheckpointInterval() int64 {
	n := int64(float64(c.TargetNewTestCount) * c.CheckpointIntervalFraction)
	if n < 1 {
		return 1
	}
	return n
}

// MaxAttempts returns the hard cap on generation attempts.
func (c Config) MaxAttempts() int64 {
	return c.TargetNewTestCount * c.AttemptMultiplier
}

// RangeSize returns max_value - min_value + 1.
func (c Config) RangeSize() *big.Int {
	n := new(big.Int).Sub(c.MaxValue.Int, c.MinValue.Int)
	return n.Add(n, big.NewInt(1))
}

func validateSchema(c Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	doc := map[string]any{
		"database":                     c.Database,
		"backend":                      c.Backend,
		"results_log":                  c.ResultsLog,
		"target_new_test_count":        c.TargetNewTestCount,
		"min_value":                    c.MinValue.String(),
		"max_value":                    c.MaxValue.String(),
		"step_cutoff":                  c.StepCutoff,
		"checkpoint_interval_fraction": c.CheckpointIntervalFraction,
		"attempt_multiplier":           c.AttemptMultiplier,
		"top_n":                        c.TopN,
		"recreate_corrupt":             c.RecreateCorrupt,
	}
	if c.Seed != nil {
		doc["seed"] = *c.Seed
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(doc))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %s", strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	return nil
}

func pow10(exp int64) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(exp), nil)
}
