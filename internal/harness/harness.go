package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/record"
	"github.com/dustinober1/3x1-Project/internal/session"
	"github.com/dustinober1/3x1-Project/internal/testutil"
)

// Epoch is the harness clock's start time.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// SessionID is the fixed session ID every scenario runs under.
const SessionID = "00000000-0000-7000-8000-000000000000"

// Result is the outcome of one scenario run.
type Result struct {
	Summary *session.Summary
	Err     error
	Batches []int

	failures []string
}

// Pass reports whether every expectation held.
func (r *Result) Pass() bool {
	return len(r.failures) == 0
}

// Failures returns the failed expectations.
func (r *Result) Failures() []string {
	return r.failures
}

func (r *Result) fail(format string, args ...interface{}) {
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

// Run executes a scenario and checks its expectations.
//
// Each scenario runs against a fresh in-memory store with a step clock
// (one millisecond per reading) and a fixed session ID. The returned error
// covers harness setup only; a session error is reported in Result.Err and
// checked against Expect.Error.
func Run(s *Scenario) (*Result, error) {
	ctx := context.Background()

	cfg, err := buildConfig(s.Config)
	if err != nil {
		return nil, err
	}

	st := testutil.NewMemStore()
	if len(s.Preload) > 0 {
		if _, err := st.InsertBatch(ctx, ints(s.Preload)); err != nil {
			return nil, fmt.Errorf("preload: %w", err)
		}
	}
	if s.PreloadStats != nil {
		if err := st.CommitStats(ctx, s.PreloadStats.stats()); err != nil {
			return nil, fmt.Errorf("preload stats: %w", err)
		}
	}
	if s.FailCheckpoints != 0 {
		st.FailCheckpoints(s.FailCheckpoints)
	}

	clock := testutil.NewStepClock(Epoch, time.Millisecond)
	opts := []session.Option{
		session.WithIDGenerator(session.NewFixedGenerator(SessionID)),
		session.WithClock(clock.Now),
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	}
	if len(s.Values) > 0 {
		opts = append(opts, session.WithSampler(session.NewSequenceSampler(ints(s.Values)...)))
	}

	driver, err := session.New(cfg, st, opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}

	sum, runErr := driver.Run(ctx)
	result := &Result{Summary: sum, Err: runErr, Batches: st.BatchSizes()}
	if sum == nil {
		result.fail("session did not start: %v", runErr)
		return result, nil
	}

	checkExpect(result, s.Expect)
	return result, nil
}

// buildConfig applies scenario overrides to a small default session.
func buildConfig(sc ScenarioConfig) (config.Config, error) {
	cfg := config.Default()
	cfg.TargetNewTestCount = 10
	cfg.MinValue = config.BigInt{Int: big.NewInt(1)}
	cfg.MaxValue = config.BigInt{Int: big.NewInt(1_000_000)}
	seed := int64(1)

	if sc.Target != 0 {
		cfg.TargetNewTestCount = sc.Target
	}
	if sc.Min.Int != nil {
		cfg.MinValue = sc.Min
	}
	if sc.Max.Int != nil {
		cfg.MaxValue = sc.Max
	}
	if sc.Cutoff != 0 {
		cfg.StepCutoff = sc.Cutoff
	}
	if sc.CheckpointFraction != 0 {
		cfg.CheckpointIntervalFraction = sc.CheckpointFraction
	}
	if sc.AttemptMultiplier != 0 {
		cfg.AttemptMultiplier = sc.AttemptMultiplier
	}
	if sc.TopN != 0 {
		cfg.TopN = sc.TopN
	}
	if sc.Seed != 0 {
		seed = sc.Seed
	}
	cfg.Seed = &seed

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("scenario config: %w", err)
	}
	return cfg, nil
}

func (s StatsSpec) stats() record.Stats {
	return record.Stats{
		LongestSequenceSteps:   s.LongestSteps,
		LongestSequenceValue:   s.LongestValue.Int,
		HighestPeakValue:       s.Peak.Int,
		HighestPeakSourceValue: s.PeakSource.Int,
		CumulativeSteps:        s.TotalSteps,
		CumulativeSampleCount:  s.TotalNumbers,
	}.Normalize()
}

func ints(vs []config.BigInt) []*big.Int {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		out[i] = new(big.Int).Set(v.Int)
	}
	return out
}
