package kvstore

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustinober1/3x1-Project/internal/record"
	"github.com/dustinober1/3x1-Project/internal/store"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ints(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestInsertBatchAndExists(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	inserted, err := s.InsertBatch(ctx, ints(6, 27, 6))
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	ok, err := s.Exists(ctx, big.NewInt(27))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, big.NewInt(7))
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestInsertBatchIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.InsertBatch(ctx, ints(42))
	require.NoError(t, err)
	inserted, err := s.InsertBatch(ctx, ints(42))
	require.NoError(t, err)
	assert.Equal(t, int64(0), inserted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStatsRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, empty.Equal(record.Stats{}))

	var st record.Stats
	st.Observe(big.NewInt(27), 111, big.NewInt(9232))
	require.NoError(t, s.CommitStats(ctx, st))

	got, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, st.Equal(got))
}

func TestCheckpointIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	var st record.Stats
	st.Observe(big.NewInt(6), 8, big.NewInt(16))
	inserted, err := s.Checkpoint(ctx, ints(6), st)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	next := st.Clone()
	next.Observe(big.NewInt(27), 111, big.NewInt(9232))
	_, err = s.Checkpoint(cancelled, ints(27), next)
	require.Error(t, err)
	assert.True(t, store.IsTransactionFailure(err))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	got, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, st.Equal(got))
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "badger")

	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	var st record.Stats
	st.Observe(big.NewInt(97), 118, big.NewInt(9232))
	_, err = s.Checkpoint(ctx, ints(97, 98, 99), st)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(DefaultConfig(dir))
	require.NoError(t, err)
	defer s.Close()

	for _, n := range ints(97, 98, 99) {
		ok, err := s.Exists(ctx, n)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	got, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, st.Equal(got))
}

func TestOpenMissingParent(t *testing.T) {
	_, err := Open(DefaultConfig("/nonexistent/dir/badger"))
	require.Error(t, err)
	assert.True(t, store.IsOpenError(err))
}

func TestOpenBadCountIsCorrupt(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	s, err := Open(DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(countKey, []byte{1, 2, 3})
	}))
	require.NoError(t, s.Close())

	_, err = Open(DefaultConfig(dir))
	require.Error(t, err)
	assert.True(t, store.IsCorrupt(err))
}

func TestBackupLoadsIntoEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	var st record.Stats
	st.Observe(big.NewInt(27), 111, big.NewInt(9232))
	_, err := s.Checkpoint(ctx, ints(27, 28), st)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "backup.bak")
	require.NoError(t, s.Backup(ctx, dest))
	assert.Error(t, s.Backup(ctx, dest), "existing destination must be refused")

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	restored := createTestStore(t)
	require.NoError(t, restored.db.Load(f, 256))

	count, err := restored.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	got, err := restored.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, st.Equal(got))
}

func sequential(from, n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = big.NewInt(int64(from + i))
	}
	return out
}

func TestMaxCheckpointBatchFitsOneTransaction(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	limit := s.MaxCheckpointBatch()
	require.Greater(t, limit, 1000)
	assert.Less(t, int64(limit), s.db.MaxBatchCount())

	var st record.Stats
	st.Observe(big.NewInt(27), 111, big.NewInt(9232))
	inserted, err := s.Checkpoint(ctx, sequential(1, limit), st)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), inserted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(limit), count)
}

func TestCheckpointBeyondLimitFailsCleanly(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	limit := s.MaxCheckpointBatch()
	_, err := s.Checkpoint(ctx, sequential(1, 2*limit), record.Stats{}.Normalize())
	require.Error(t, err)
	assert.True(t, store.IsTransactionFailure(err))
	assert.ErrorIs(t, err, badger.ErrTxnTooBig)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
