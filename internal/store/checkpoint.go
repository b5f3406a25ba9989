package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/dustinober1/3x1-Project/internal/record"
)

// Checkpoint atomically inserts the digests of ns and replaces the all-time
// record in a single transaction.
//
// This is the crash-safe variant of the two-step sequence
// InsertBatch → CommitStats: either both the digests and the record are
// durable afterwards, or neither is. On error nothing was applied and the
// caller may retry with the same inputs.
//
// Returns the number of digests newly stored.
func (s *Store) Checkpoint(ctx context.Context, ns []*big.Int, st record.Stats) (int64, error) {
	var inserted int64
	err := s.withTx(ctx, "checkpoint", func(tx *sql.Tx) error {
		var err error
		// Step 1: membership (idempotent)
		inserted, err = insertDigests(ctx, tx, record.DigestsOf(ns))
		if err != nil {
			return err
		}
		// Step 2: statistics (whole-record replace)
		return putStats(ctx, tx, st)
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// withTx runs fn inside a transaction. Any failure, including the commit
// itself, is returned as a TRANSACTION_FAILURE and the transaction is rolled
// back.
func (s *Store) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return NewTransactionError(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return NewTransactionError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return NewTransactionError(op, fmt.Errorf("commit: %w", err))
	}
	return nil
}
