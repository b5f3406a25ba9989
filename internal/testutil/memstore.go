package testutil

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/dustinober1/3x1-Project/internal/record"
	"github.com/dustinober1/3x1-Project/internal/store"
)

// ErrInjected is the cause wrapped by failures injected into MemStore.
var ErrInjected = errors.New("injected failure")

// ErrBatchTooBig is the cause when a Checkpoint exceeds SetMaxBatch.
var ErrBatchTooBig = errors.New("batch exceeds transaction limit")

// MemStore is an in-memory membership and statistics store with failure
// injection. It has the same transactional contract as the durable
// backends: a failed Checkpoint applies nothing.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type MemStore struct {
	mu     sync.Mutex
	tested map[record.Digest]struct{}
	stats  record.Stats

	failCheckpoints int // remaining Checkpoint calls to fail; -1 fails forever
	failExists      bool
	maxBatch        int

	checkpointCalls int
	batchSizes      []int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{tested: make(map[record.Digest]struct{})}
}

// FailCheckpoints makes the next n Checkpoint calls fail with a
// TRANSACTION_FAILURE. A negative n fails every call.
func (m *MemStore) FailCheckpoints(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCheckpoints = n
}

// SetMaxBatch makes Checkpoint and InsertBatch reject batches larger than n, the way a
// Badger transaction rejects oversized writes. Zero removes the limit.
func (m *MemStore) SetMaxBatch(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxBatch = n
}

// MaxCheckpointBatch returns the limit set by SetMaxBatch.
func (m *MemStore) MaxCheckpointBatch() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxBatch
}

// FailExists makes every Exists call fail.
func (m *MemStore) FailExists(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failExists = fail
}

// Exists reports whether n was committed.
func (m *MemStore) Exists(ctx context.Context, n *big.Int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failExists {
		return false, store.NewTransactionError("exists", ErrInjected)
	}
	_, ok := m.tested[record.DigestOf(n)]
	return ok, nil
}

// Count returns the number of committed digests.
func (m *MemStore) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.tested)), nil
}

// LoadStats returns the committed record.
func (m *MemStore) LoadStats(ctx context.Context) (record.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats.Clone(), nil
}

// InsertBatch inserts ns outside any statistics update.
func (m *MemStore) InsertBatch(ctx context.Context, ns []*big.Int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBatch > 0 && len(ns) > m.maxBatch {
		return 0, store.NewTransactionError("insert batch", ErrBatchTooBig)
	}
	return m.insert(ns), nil
}

// CommitStats replaces the record.
func (m *MemStore) CommitStats(ctx context.Context, st record.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = st.Clone()
	return nil
}

// Checkpoint inserts ns and replaces the record, or does neither.
func (m *MemStore) Checkpoint(ctx context.Context, ns []*big.Int, st record.Stats) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.NewTransactionError("checkpoint", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checkpointCalls++
	if m.failCheckpoints != 0 {
		if m.failCheckpoints > 0 {
			m.failCheckpoints--
		}
		return 0, store.NewTransactionError("checkpoint", ErrInjected)
	}
	if m.maxBatch > 0 && len(ns) > m.maxBatch {
		return 0, store.NewTransactionError("checkpoint", ErrBatchTooBig)
	}

	m.batchSizes = append(m.batchSizes, len(ns))
	inserted := m.insert(ns)
	m.stats = st.Clone()
	return inserted, nil
}

// CheckpointCalls returns how many times Checkpoint was called, failed or not.
func (m *MemStore) CheckpointCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkpointCalls
}

// BatchSizes returns the sizes of committed checkpoint batches in order.
func (m *MemStore) BatchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batchSizes...)
}

func (m *MemStore) insert(ns []*big.Int) int64 {
	var inserted int64
	for _, n := range ns {
		d := record.DigestOf(n)
		if _, ok := m.tested[d]; ok {
			continue
		}
		m.tested[d] = struct{}{}
		inserted++
	}
	return inserted
}
