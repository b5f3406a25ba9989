package store

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustinober1/3x1-Project/internal/record"
)

func TestCheckpoint_WritesDigestsAndStats(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	var st record.Stats
	st.Observe(big.NewInt(27), 111, big.NewInt(9232))
	st.Observe(big.NewInt(6), 8, big.NewInt(16))

	inserted, err := s.Checkpoint(ctx, ints(27, 6), st)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	got, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, st.Equal(got))
}

func TestCheckpoint_RetryWithSameInputsIsSafe(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	var st record.Stats
	st.Observe(big.NewInt(27), 111, big.NewInt(9232))

	_, err := s.Checkpoint(ctx, ints(27), st)
	require.NoError(t, err)
	inserted, err := s.Checkpoint(ctx, ints(27), st)
	require.NoError(t, err)
	assert.Equal(t, int64(0), inserted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCheckpoint_FailureAppliesNothing(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	var before record.Stats
	before.Observe(big.NewInt(6), 8, big.NewInt(16))
	_, err := s.Checkpoint(ctx, ints(6), before)
	require.NoError(t, err)

	// Make the statistics half of the next checkpoint fail after the
	// digest half has already executed inside the transaction.
	_, err = s.db.Exec(`
		CREATE TRIGGER fail_stats_insert BEFORE INSERT ON stats
		BEGIN SELECT RAISE(ABORT, 'injected stats failure'); END;
		CREATE TRIGGER fail_stats_update BEFORE UPDATE ON stats
		BEGIN SELECT RAISE(ABORT, 'injected stats failure'); END;`)
	require.NoError(t, err)

	after := before.Clone()
	after.Observe(big.NewInt(27), 111, big.NewInt(9232))
	_, err = s.Checkpoint(ctx, ints(27, 97), after)
	require.Error(t, err)
	assert.True(t, IsTransactionFailure(err), "expected TRANSACTION_FAILURE, got %v", err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "digests from the failed checkpoint must be rolled back")

	ok, err := s.Exists(ctx, big.NewInt(27))
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, before.Equal(got), "stats must keep the pre-checkpoint value")

	// Once the fault clears, the same checkpoint succeeds.
	_, err = s.db.Exec(`DROP TRIGGER fail_stats_insert; DROP TRIGGER fail_stats_update;`)
	require.NoError(t, err)
	inserted, err := s.Checkpoint(ctx, ints(27, 97), after)
	require.NoError(t, err)
	assert.Equal(t, int64(2), inserted)
}

// The two-step path (InsertBatch without the paired CommitStats) models a
// crash between the halves of an unpaired commit. The membership set is
// ahead of the statistics record by at most one batch; that state is
// accepted and later commits carry the record forward from where it is.
func TestCrashBetweenInsertAndCommit(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crash.db")

	var committed record.Stats
	committed.Observe(big.NewInt(6), 8, big.NewInt(16))

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Checkpoint(ctx, ints(6), committed)
	require.NoError(t, err)

	// "Crash": digests land, stats commit never runs.
	_, err = s.InsertBatch(ctx, ints(27, 97))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, n := range ints(6, 27, 97) {
		ok, err := s.Exists(ctx, n)
		require.NoError(t, err)
		assert.True(t, ok, "%s should be in the membership set", n)
	}

	got, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.True(t, committed.Equal(got), "stats should reflect pre-crash commit")
	assert.Equal(t, int64(1), got.CumulativeSampleCount)

	// Next session: continue from the loaded record.
	got.Observe(big.NewInt(7), 16, big.NewInt(52))
	_, err = s.Checkpoint(ctx, ints(7), got)
	require.NoError(t, err)

	final, err := s.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), final.CumulativeSampleCount)
	assert.Equal(t, int64(16), final.LongestSequenceSteps)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestCheckpoint_ClosedStore(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Checkpoint(context.Background(), ints(1), record.Stats{})
	require.Error(t, err)
	assert.True(t, IsTransactionFailure(err))
}
