// Package kvstore provides a BadgerDB-backed implementation of the tested-set
// and statistics stores.
//
// Key layout:
//
//	t/<32-byte digest>   -> empty value, one per tested integer
//	s/all_time_stats     -> JSON statistics record
//	m/count              -> uint64 big-endian, number of t/ keys
//
// The count is maintained inside the same transaction as the digest inserts
// so Count never needs a prefix scan.
package kvstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/dustinober1/3x1-Project/internal/record"
	"github.com/dustinober1/3x1-Project/internal/store"
)

var (
	testedPrefix = []byte("t/")
	statsKey     = []byte("s/" + record.StatsKey)
	countKey     = []byte("m/count")
)

// Config configures a Badger store.
type Config struct {
	// Path is the database directory. Its parent must exist.
	Path string

	// InMemory runs without touching disk. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns a durable configuration for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// badgerLogger adapts slog.Logger to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Store is a Badger-backed tested set plus statistics record.
type Store struct {
	db   *badger.DB
	path string
}

// Open opens or creates the Badger database described by cfg.
//
// Errors:
//   - STORE_OPEN if the parent directory is missing, permissions deny
//     access, or another process holds the directory lock
//   - CORRUPT_STORE for any other open failure, or if the statistics or
//     count keys cannot be decoded
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, store.NewOpenError(cfg.Path, errors.New("path is required for persistent database"))
		}
		if _, err := os.Stat(filepath.Dir(cfg.Path)); err != nil {
			return nil, store.NewOpenError(cfg.Path, fmt.Errorf("store directory: %w", err))
		}
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, store.NewOpenError(cfg.Path, fmt.Errorf("create database directory: %w", err))
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, classifyOpenError(cfg.Path, err)
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.Check(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// classifyOpenError separates "cannot use this location" from "the data in
// this location is damaged".
func classifyOpenError(path string, err error) error {
	if errors.Is(err, os.ErrPermission) || strings.Contains(err.Error(), "directory lock") {
		return store.NewOpenError(path, err)
	}
	return store.NewCorruptError(path, err)
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database directory.
func (s *Store) Path() string {
	return s.path
}

// Check verifies that the statistics record and the count key decode.
func (s *Store) Check(ctx context.Context) error {
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := readCount(txn); err != nil {
			return err
		}
		_, err := readStats(txn)
		return err
	})
	if err != nil {
		return store.NewCorruptError(s.path, err)
	}
	return nil
}

// Exists reports whether n has been committed.
func (s *Store) Exists(ctx context.Context, n *big.Int) (bool, error) {
	return s.ExistsDigest(ctx, record.DigestOf(n))
}

// ExistsDigest reports whether digest d has been committed.
func (s *Store) ExistsDigest(ctx context.Context, d record.Digest) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(testedKey(d))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return found, nil
}

// InsertBatch inserts the digests of ns that are not already present in a
// single transaction. Returns the number newly stored.
func (s *Store) InsertBatch(ctx context.Context, ns []*big.Int) (int64, error) {
	var inserted int64
	err := s.update(ctx, "insert batch", func(txn *badger.Txn) error {
		var err error
		inserted, err = insertDigests(txn, record.DigestsOf(ns))
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Count returns the number of distinct digests stored.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = readCount(txn)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// LoadStats returns the stored record, or a zero record if none exists.
func (s *Store) LoadStats(ctx context.Context) (record.Stats, error) {
	var st record.Stats
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		st, err = readStats(txn)
		return err
	})
	if err != nil {
		return record.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return st, nil
}

// CommitStats atomically replaces the stored record.
func (s *Store) CommitStats(ctx context.Context, st record.Stats) error {
	return s.update(ctx, "commit stats", func(txn *badger.Txn) error {
		return putStats(txn, st)
	})
}

// Checkpoint inserts the digests of ns and replaces the record in one
// transaction. Returns the number of digests newly stored.
func (s *Store) Checkpoint(ctx context.Context, ns []*big.Int, st record.Stats) (int64, error) {
	var inserted int64
	err := s.update(ctx, "checkpoint", func(txn *badger.Txn) error {
		var err error
		inserted, err = insertDigests(txn, record.DigestsOf(ns))
		if err != nil {
			return err
		}
		return putStats(txn, st)
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// Per-entry cost Badger charges a transaction for one tested key with an
// empty value: key, two meta bytes and the ten-byte version suffix.
const testedEntryCost = int64(len("t/")+record.DigestSize) + 2 + 10

// Room left in every checkpoint for the count and stats keys.
const (
	reservedEntries = 2
	reservedBytes   = 16 << 10
)

// MaxCheckpointBatch returns how many integers one Checkpoint or
// InsertBatch can carry without Badger rejecting the transaction as too big.
func (s *Store) MaxCheckpointBatch() int {
	byCount := s.db.MaxBatchCount() - reservedEntries - 1
	bySize := (s.db.MaxBatchSize() - reservedBytes) / testedEntryCost
	return int(max(min(byCount, bySize), 1))
}

// Backup streams a full backup to dest, which must not exist. The file can
// be restored with badger's Load.
func (s *Store) Backup(ctx context.Context, dest string) error {
	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	if _, err := s.db.Backup(f, 0); err != nil {
		f.Close()
		return fmt.Errorf("backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// update runs fn in a read-write transaction and maps every failure to
// TRANSACTION_FAILURE. Badger discards the transaction on error.
func (s *Store) update(ctx context.Context, op string, fn func(*badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return store.NewTransactionError(op, err)
	}
	if err := s.db.Update(fn); err != nil {
		return store.NewTransactionError(op, err)
	}
	return nil
}

func testedKey(d record.Digest) []byte {
	key := make([]byte, 0, len(testedPrefix)+record.DigestSize)
	key = append(key, testedPrefix...)
	return append(key, d.Bytes()...)
}

// insertDigests sets absent digest keys and bumps the count by the number
// inserted. Reads inside an update transaction see its own pending writes,
// so duplicates within ds are skipped too.
func insertDigests(txn *badger.Txn, ds []record.Digest) (int64, error) {
	var inserted int64
	for _, d := range ds {
		key := testedKey(d)
		_, err := txn.Get(key)
		if err == nil {
			continue
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return 0, fmt.Errorf("get %s: %w", d, err)
		}
		if err := txn.Set(key, []byte{}); err != nil {
			return 0, fmt.Errorf("set %s: %w", d, err)
		}
		inserted++
	}

	if inserted == 0 {
		return 0, nil
	}
	count, err := readCount(txn)
	if err != nil {
		return 0, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(count+inserted))
	if err := txn.Set(countKey, buf); err != nil {
		return 0, fmt.Errorf("set count: %w", err)
	}
	return inserted, nil
}

func readCount(txn *badger.Txn) (int64, error) {
	item, err := txn.Get(countKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get count: %w", err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("count value has %d bytes, want 8", len(val))
	}
	return int64(binary.BigEndian.Uint64(val)), nil
}

func readStats(txn *badger.Txn) (record.Stats, error) {
	item, err := txn.Get(statsKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record.Stats{}.Normalize(), nil
	}
	if err != nil {
		return record.Stats{}, fmt.Errorf("get stats: %w", err)
	}
	var st record.Stats
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &st)
	})
	if err != nil {
		return record.Stats{}, err
	}
	return st, nil
}

func putStats(txn *badger.Txn, st record.Stats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := txn.Set(statsKey, data); err != nil {
		return fmt.Errorf("set stats: %w", err)
	}
	return nil
}
