package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dustinober1/3x1-Project/internal/record"
)

// LoadStats returns the stored all-time record, or a zero-valued record if
// none has been committed yet.
func (s *Store) LoadStats(ctx context.Context) (record.Stats, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM stats WHERE key = ?`, record.StatsKey,
	).Scan(&value)
	if err == sql.ErrNoRows || (err == nil && !value.Valid) {
		return record.Stats{}.Normalize(), nil
	}
	if err != nil {
		return record.Stats{}, fmt.Errorf("load stats: %w", err)
	}

	var st record.Stats
	if err := json.Unmarshal([]byte(value.String), &st); err != nil {
		return record.Stats{}, fmt.Errorf("load stats: %w", err)
	}
	return st, nil
}

// CommitStats atomically replaces the stored all-time record.
// The whole record is written; there are no field-level updates.
func (s *Store) CommitStats(ctx context.Context, st record.Stats) error {
	return s.withTx(ctx, "commit stats", func(tx *sql.Tx) error {
		return putStats(ctx, tx, st)
	})
}

// putStats upserts the statistics row inside an open transaction.
func putStats(ctx context.Context, tx *sql.Tx, st record.Stats) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stats (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, record.StatsKey, string(data))
	if err != nil {
		return fmt.Errorf("write stats: %w", err)
	}
	return nil
}
