package session

import (
	"context"
	"math/big"

	"github.com/dustinober1/3x1-Project/internal/record"
)

// Store is the durable state a session reads and writes. Both
// store.Store (SQLite) and kvstore.Store (Badger) satisfy it.
type Store interface {
	// Exists reports whether n was committed by any earlier checkpoint.
	Exists(ctx context.Context, n *big.Int) (bool, error)

	// Count returns the number of distinct tested integers.
	Count(ctx context.Context) (int64, error)

	// LoadStats returns the all-time record, zero-valued if none.
	LoadStats(ctx context.Context) (record.Stats, error)

	// Checkpoint inserts ns and replaces the record in one transaction.
	Checkpoint(ctx context.Context, ns []*big.Int, st record.Stats) (int64, error)
}

// BatchLimiter is implemented by stores whose transactions cannot hold an
// arbitrary number of integers. The Driver never passes more than
// MaxCheckpointBatch integers to one Checkpoint call.
type BatchLimiter interface {
	MaxCheckpointBatch() int
}
