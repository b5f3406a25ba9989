package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/dustinober1/3x1-Project/internal/collatz"
	"github.com/dustinober1/3x1-Project/internal/config"
	"github.com/dustinober1/3x1-Project/internal/record"
)

const (
	// DefaultMaxConsecutiveFailures aborts sampling after this many failed
	// checkpoints in a row.
	DefaultMaxConsecutiveFailures = 3

	// DefaultFinalFlushAttempts bounds the FINALIZE retries.
	DefaultFinalFlushAttempts = 3

	// DefaultFlushTimeout bounds the final flush once the run context is done.
	DefaultFlushTimeout = 30 * time.Second
)

// Driver runs one session. A Driver is single-use: call Run once.
//
// Thread-safety: not safe for concurrent use.
type Driver struct {
	cfg     config.Config
	store   Store
	sampler Sampler
	ids     IDGenerator
	now     func() time.Time
	logger  *slog.Logger

	maxFailures   int
	flushAttempts int
	flushTimeout  time.Duration
	maxBatch      int // 0 means unlimited

	state   State
	stats   record.Stats // in-memory all-time record, ahead of the store
	pending []*big.Int
	marks   []record.Stats // record after each full maxBatch chunk of pending
	seen    map[record.Digest]struct{}
	summary *Summary

	consecutiveFailures int
}

// Option configures a Driver.
type Option func(*Driver)

// WithSampler replaces the default uniform sampler.
func WithSampler(s Sampler) Option {
	return func(d *Driver) { d.sampler = s }
}

// WithIDGenerator replaces the UUIDv7 session ID generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(d *Driver) { d.ids = g }
}

// WithClock replaces time.Now for start time and rate.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// WithLogger sets the logger for progress lines.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// WithMaxConsecutiveFailures sets how many failed checkpoints in a row
// abort the session.
func WithMaxConsecutiveFailures(n int) Option {
	return func(d *Driver) { d.maxFailures = n }
}

// WithFinalFlushAttempts sets the FINALIZE retry bound.
func WithFinalFlushAttempts(n int) Option {
	return func(d *Driver) { d.flushAttempts = n }
}

// WithMaxBatch caps how many integers one Checkpoint call carries. It
// overrides the limit reported by a BatchLimiter store.
func WithMaxBatch(n int) Option {
	return func(d *Driver) { d.maxBatch = n }
}

// New validates cfg and returns a Driver bound to st.
func New(cfg config.Config, st Store, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if st == nil {
		return nil, errors.New("session: nil store")
	}

	d := &Driver{
		cfg:           cfg,
		store:         st,
		ids:           UUIDv7Generator{},
		now:           time.Now,
		logger:        slog.Default(),
		maxFailures:   DefaultMaxConsecutiveFailures,
		flushAttempts: DefaultFinalFlushAttempts,
		flushTimeout:  DefaultFlushTimeout,
		state:         StateInit,
	}
	if bl, ok := st.(BatchLimiter); ok {
		d.maxBatch = bl.MaxCheckpointBatch()
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.sampler == nil {
		seed := time.Now().UnixNano()
		if cfg.Seed != nil {
			seed = *cfg.Seed
		}
		d.sampler = NewUniformSampler(cfg.MinValue.Int, cfg.MaxValue.Int, seed)
	}
	if d.maxFailures < 1 {
		d.maxFailures = 1
	}
	if d.flushAttempts < 1 {
		d.flushAttempts = 1
	}
	if d.maxBatch < 0 {
		d.maxBatch = 0
	}
	return d, nil
}

// State returns the current lifecycle state.
func (d *Driver) State() State {
	return d.state
}

// Run executes the session.
//
// A non-nil Summary is returned whenever INIT succeeded, including when the
// session aborts; the error then explains the abort. Context cancellation is
// not an error: sampling stops, pending work is flushed, and
// Summary.Interrupted is set.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	if d.state != StateInit {
		return nil, fmt.Errorf("session: Run called in state %s", d.state)
	}
	if err := d.init(ctx); err != nil {
		d.state = StateAborted
		return nil, err
	}

	runErr := d.sample(ctx)
	return d.finalize(ctx, runErr)
}

func (d *Driver) init(ctx context.Context) error {
	stats, err := d.store.LoadStats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	count, err := d.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("count tested: %w", err)
	}

	d.stats = stats
	d.seen = make(map[record.Digest]struct{})
	d.summary = &Summary{
		SessionID:    d.ids.Generate(),
		StartedAt:    d.now(),
		Target:       d.cfg.TargetNewTestCount,
		InitialCount: count,
		FinalCount:   count,
		AllTime:      stats.Clone(),
		TopLongest:   []Entry{},
		TopPeaks:     []Entry{},
		topN:         d.cfg.TopN,
	}

	d.logger.Info("session started",
		"session", d.summary.SessionID,
		"target", d.cfg.TargetNewTestCount,
		"min", d.cfg.MinValue.String(),
		"max", d.cfg.MaxValue.String(),
		"tested", count,
		"max_batch", d.maxBatch,
	)
	return nil
}

// sample runs the SAMPLING loop. It returns nil on normal termination and
// on cancellation, and a store error when the session must abort.
func (d *Driver) sample(ctx context.Context) error {
	d.state = StateSampling
	s := d.summary
	interval := d.cfg.CheckpointInterval()
	maxAttempts := d.cfg.MaxAttempts()

	for s.NewTests < s.Target && s.Attempts < maxAttempts {
		if ctx.Err() != nil {
			s.Interrupted = true
			d.logger.Warn("session interrupted", "new", s.NewTests, "dups", s.DuplicatesSkipped)
			return nil
		}

		n := d.sampler.Next()
		s.Attempts++

		dup, err := d.isDuplicate(ctx, n)
		if err != nil {
			if ctx.Err() != nil {
				s.Interrupted = true
				return nil
			}
			return fmt.Errorf("lookup %s: %w", n.String(), err)
		}
		if dup {
			s.DuplicatesSkipped++
			continue
		}

		res, err := collatz.Evaluate(n, d.cfg.StepCutoff)
		if err != nil {
			return err
		}
		if res.CutoffReached() {
			s.CutoffHits++
			d.logger.Warn("step cutoff reached", "n", n.String(), "steps", res.Steps)
		}

		d.stats.Observe(n, res.Steps, res.Peak)
		s.observe(Entry{Value: n, Steps: res.Steps, Peak: res.Peak})
		d.pending = append(d.pending, n)
		d.seen[record.DigestOf(n)] = struct{}{}

		full := false
		if d.maxBatch > 0 && len(d.pending)%d.maxBatch == 0 {
			d.marks = append(d.marks, d.stats.Clone())
			full = true
		}

		if s.NewTests%interval == 0 || full {
			if err := d.checkpoint(ctx); err != nil {
				return err
			}
			d.logProgress()
		}
	}

	if s.NewTests < s.Target {
		s.AttemptCapReached = true
		d.logger.Warn("attempt cap reached",
			"attempts", s.Attempts,
			"new", s.NewTests,
			"target", s.Target,
			"range", d.cfg.RangeSize().String(),
		)
	}
	return nil
}

// isDuplicate reports whether n is pending in this session or committed.
func (d *Driver) isDuplicate(ctx context.Context, n *big.Int) (bool, error) {
	if _, ok := d.seen[record.DigestOf(n)]; ok {
		return true, nil
	}
	return d.store.Exists(ctx, n)
}

// checkpoint runs one CHECKPOINT. A failure keeps the buffer and only
// becomes fatal after maxFailures consecutive failures.
func (d *Driver) checkpoint(ctx context.Context) error {
	d.state = StateCheckpoint
	defer func() { d.state = StateSampling }()

	err := d.flush(ctx)
	if err == nil {
		d.consecutiveFailures = 0
		return nil
	}
	if ctx.Err() != nil {
		// Cancellation mid-commit; FINALIZE retries with a fresh context.
		return nil
	}

	d.consecutiveFailures++
	d.logger.Error("checkpoint failed",
		"pending", len(d.pending),
		"consecutive", d.consecutiveFailures,
		"error", err,
	)
	if d.consecutiveFailures >= d.maxFailures {
		return fmt.Errorf("checkpoint failed %d times in a row: %w", d.consecutiveFailures, err)
	}
	return nil
}

// flush commits the pending buffer and the current record together.
//
// With a batch limit the buffer is committed in chunks of maxBatch. Each
// chunk carries the record as it stood right after its last integer, so a
// failure part-way leaves the store with a record that matches its
// integers, and the rest of the buffer is retried later.
func (d *Driver) flush(ctx context.Context) error {
	for len(d.pending) > 0 || !d.stats.Equal(d.summary.AllTime) {
		batch, snapshot := d.pending, d.stats.Clone()
		if len(d.marks) > 0 {
			batch, snapshot = d.pending[:d.maxBatch], d.marks[0]
		}

		inserted, err := d.store.Checkpoint(ctx, batch, snapshot)
		if err != nil {
			d.summary.FailedCheckpoints++
			return err
		}

		d.summary.Checkpoints++
		d.summary.AllTime = snapshot
		d.logger.Debug("checkpoint committed", "batch", len(batch), "inserted", inserted)
		if len(d.marks) > 0 {
			d.marks = d.marks[1:]
		}
		d.pending = append(d.pending[:0], d.pending[len(batch):]...)
	}

	clear(d.seen)
	return nil
}

// finalize runs FINALIZE and builds the summary.
func (d *Driver) finalize(ctx context.Context, runErr error) (*Summary, error) {
	d.state = StateFinalize
	s := d.summary

	flushCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		flushCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), d.flushTimeout)
		defer cancel()
	}

	var flushErr error
	for attempt := 1; attempt <= d.flushAttempts; attempt++ {
		if flushErr = d.flush(flushCtx); flushErr == nil {
			break
		}
		d.logger.Error("final flush failed", "attempt", attempt, "pending", len(d.pending), "error", flushErr)
	}

	if flushErr != nil {
		s.Lost = len(d.pending)
		flushErr = fmt.Errorf("final flush: %d tested integers not committed: %w", s.Lost, flushErr)
	}

	if count, err := d.store.Count(flushCtx); err == nil {
		s.FinalCount = count
	} else {
		s.FinalCount = s.InitialCount + s.NewTests - int64(s.Lost)
		d.logger.Warn("final count unavailable", "error", err)
	}

	s.Elapsed = d.now().Sub(s.StartedAt)

	err := errors.Join(runErr, flushErr)
	if err != nil {
		d.state = StateAborted
	} else {
		d.state = StateDone
	}
	s.State = d.state

	d.logger.Info("session finished",
		"session", s.SessionID,
		"state", s.State.String(),
		"new", s.NewTests,
		"dups", s.DuplicatesSkipped,
		"tested", s.FinalCount,
		"elapsed", s.Elapsed.Round(time.Millisecond),
	)
	return s, err
}

func (d *Driver) logProgress() {
	s := d.summary
	elapsed := d.now().Sub(s.StartedAt)
	rate := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(s.NewTests) / secs
	}
	d.logger.Info("progress",
		"pct", fmt.Sprintf("%.1f", 100*float64(s.NewTests)/float64(s.Target)),
		"new", s.NewTests,
		"dups", s.DuplicatesSkipped,
		"rate", fmt.Sprintf("%.1f/s", rate),
	)
}
