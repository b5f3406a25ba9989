// Package legacy imports the JSON snapshot format used before tested
// integers were kept in a database.
//
// A snapshot is one JSON object:
//
//	{
//	  "tested_numbers": [10000000027, 10000000031, ...],
//	  "all_time_stats": {"longest_sequence": 1234, "longest_num": ..., ...}
//	}
//
// The numbers array is streamed, so snapshots larger than memory import
// in bounded space.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"os"
	"time"

	"github.com/dustinober1/3x1-Project/internal/record"
)

// DefaultBatchSize is the number of integers inserted per transaction.
const DefaultBatchSize = 10000

// ErrSourceMissing is returned by ImportFile when the snapshot does not exist.
var ErrSourceMissing = errors.New("legacy snapshot not found")

// Target is the store an import writes into.
type Target interface {
	InsertBatch(ctx context.Context, ns []*big.Int) (int64, error)
	CommitStats(ctx context.Context, st record.Stats) error
	Count(ctx context.Context) (int64, error)
}

// Report summarizes one import.
type Report struct {
	Read           int64 `json:"read"`
	Imported       int64 `json:"imported"`
	Duplicates     int64 `json:"duplicates"`
	Batches        int   `json:"batches"`
	StatsInstalled bool  `json:"stats_installed"`
	Count          int64 `json:"count"`
}

// Option configures an import.
type Option func(*importer)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(im *importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) Option {
	return func(im *importer) { im.logger = l }
}

type importer struct {
	dst       Target
	batchSize int
	logger    *slog.Logger

	batch  []*big.Int
	report Report
}

// BackupPath returns the backup name for db taken at t:
// <db>.backup.YYYYMMDD_HHMMSS.
func BackupPath(db string, t time.Time) string {
	return db + ".backup." + t.Format("20060102_150405")
}

// ImportFile imports the snapshot at path.
func ImportFile(ctx context.Context, path string, dst Target, opts ...Option) (Report, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Report{}, fmt.Errorf("%w: %s", ErrSourceMissing, path)
	}
	if err != nil {
		return Report{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Import(ctx, f, dst, opts...)
}

// Import reads a snapshot from r into dst.
//
// Every integer is digested and inserted in batches; integers already
// present count as duplicates. all_time_stats, when present, replaces the
// stored record verbatim after all integers are in. Unknown keys are
// skipped. Batches committed before an error stay committed; the returned
// Report covers them.
func Import(ctx context.Context, r io.Reader, dst Target, opts ...Option) (Report, error) {
	im := &importer{
		dst:       dst,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	if bl, ok := dst.(interface{ MaxCheckpointBatch() int }); ok {
		if limit := bl.MaxCheckpointBatch(); limit > 0 && im.batchSize > limit {
			im.logger.Warn("batch size lowered to the store's transaction limit",
				"requested", im.batchSize,
				"limit", limit,
			)
			im.batchSize = limit
		}
	}
	im.batch = make([]*big.Int, 0, im.batchSize)

	if err := im.run(ctx, r); err != nil {
		return im.report, err
	}

	count, err := dst.Count(ctx)
	if err != nil {
		return im.report, fmt.Errorf("count tested: %w", err)
	}
	im.report.Count = count
	im.logger.Info("import complete",
		"imported", im.report.Imported,
		"dups", im.report.Duplicates,
		"tested", count,
	)
	return im.report, nil
}

func (im *importer) run(ctx context.Context, r io.Reader) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	var (
		stats    record.Stats
		hasStats bool
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse snapshot: %w", err)
		}
		key, _ := tok.(string)

		switch key {
		case "tested_numbers":
			if err := im.readNumbers(ctx, dec); err != nil {
				return err
			}
		case "all_time_stats":
			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return fmt.Errorf("parse all_time_stats: %w", err)
			}
			if string(raw) == "null" || string(raw) == "{}" {
				continue
			}
			if err := json.Unmarshal(raw, &stats); err != nil {
				return fmt.Errorf("parse all_time_stats: %w", err)
			}
			hasStats = true
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return fmt.Errorf("parse snapshot: %w", err)
			}
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return err
	}

	if hasStats {
		if err := im.dst.CommitStats(ctx, stats.Normalize()); err != nil {
			return fmt.Errorf("install all_time_stats: %w", err)
		}
		im.report.StatsInstalled = true
	}
	return nil
}

func (im *importer) readNumbers(ctx context.Context, dec *json.Decoder) error {
	if err := expectDelim(dec, '['); err != nil {
		return fmt.Errorf("tested_numbers: %w", err)
	}
	for dec.More() {
		var num json.Number
		if err := dec.Decode(&num); err != nil {
			return fmt.Errorf("tested_numbers[%d]: %w", im.report.Read, err)
		}
		n, ok := new(big.Int).SetString(num.String(), 10)
		if !ok || n.Sign() < 1 {
			return fmt.Errorf("tested_numbers[%d]: %q is not a positive integer", im.report.Read, num.String())
		}
		im.report.Read++
		im.batch = append(im.batch, n)
		if len(im.batch) == im.batchSize {
			if err := im.flush(ctx); err != nil {
				return err
			}
		}
	}
	if err := expectDelim(dec, ']'); err != nil {
		return fmt.Errorf("tested_numbers: %w", err)
	}
	return im.flush(ctx)
}

func (im *importer) flush(ctx context.Context) error {
	if len(im.batch) == 0 {
		return nil
	}
	inserted, err := im.dst.InsertBatch(ctx, im.batch)
	if err != nil {
		return fmt.Errorf("insert batch %d: %w", im.report.Batches+1, err)
	}

	im.report.Batches++
	im.report.Imported += inserted
	im.report.Duplicates += int64(len(im.batch)) - inserted
	im.batch = im.batch[:0]

	if im.report.Batches%10 == 0 {
		im.logger.Info("import progress",
			"read", im.report.Read,
			"imported", im.report.Imported,
			"dups", im.report.Duplicates,
		)
	}
	return nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("parse snapshot: expected %q, got %v", want, tok)
	}
	return nil
}
