package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/dustinober1/3x1-Project/internal/record"
)

const insertDigestSQL = `INSERT INTO tested (hash) VALUES (?) ON CONFLICT(hash) DO NOTHING`

// Exists reports whether n has been committed to the tested set.
// The lookup is a primary-key point query on the digest.
func (s *Store) Exists(ctx context.Context, n *big.Int) (bool, error) {
	return s.ExistsDigest(ctx, record.DigestOf(n))
}

// ExistsDigest reports whether digest d has been committed.
func (s *Store) ExistsDigest(ctx context.Context, d record.Digest) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tested WHERE hash = ?`, d.Bytes()).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists: %w", err)
	}
	return true, nil
}

// InsertBatch digests every integer in ns and inserts the digests that are
// not already present, in a single transaction.
// Uses ON CONFLICT(hash) DO NOTHING - duplicates inside the batch or already
// stored are silently ignored.
//
// Returns the number of digests newly stored.
func (s *Store) InsertBatch(ctx context.Context, ns []*big.Int) (int64, error) {
	var inserted int64
	err := s.withTx(ctx, "insert batch", func(tx *sql.Tx) error {
		var err error
		inserted, err = insertDigests(ctx, tx, record.DigestsOf(ns))
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
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tested`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return count, nil
}

// insertDigests inserts digests inside an open transaction using one
// prepared statement. Returns the number of rows actually inserted.
func insertDigests(ctx context.Context, tx *sql.Tx, ds []record.Digest) (int64, error) {
	if len(ds) == 0 {
		return 0, nil
	}

	stmt, err := tx.PrepareContext(ctx, insertDigestSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, d := range ds {
		result, err := stmt.ExecContext(ctx, d.Bytes())
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", d, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}
