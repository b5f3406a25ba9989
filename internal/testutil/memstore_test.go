package testutil

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustinober1/3x1-Project/internal/record"
	"github.com/dustinober1/3x1-Project/internal/store"
)

func TestMemStore_CheckpointIsAtomic(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	m.FailCheckpoints(1)

	var st record.Stats
	st.Observe(big.NewInt(27), 111, big.NewInt(9232))

	_, err := m.Checkpoint(ctx, []*big.Int{big.NewInt(27)}, st)
	require.Error(t, err)
	assert.True(t, store.IsTransactionFailure(err))

	count, _ := m.Count(ctx)
	assert.Equal(t, int64(0), count)
	loaded, _ := m.LoadStats(ctx)
	assert.True(t, loaded.Equal(record.Stats{}))

	inserted, err := m.Checkpoint(ctx, []*big.Int{big.NewInt(27), big.NewInt(27)}, st)
	require.NoError(t, err)
	assert.Equal(t, int64(1), inserted)

	loaded, _ = m.LoadStats(ctx)
	assert.True(t, loaded.Equal(st))
	assert.Equal(t, 2, m.CheckpointCalls())
	assert.Equal(t, []int{2}, m.BatchSizes())
}

func TestMemStore_FailExists(t *testing.T) {
	m := NewMemStore()
	m.FailExists(true)

	_, err := m.Exists(context.Background(), big.NewInt(1))
	assert.ErrorIs(t, err, ErrInjected)
}
