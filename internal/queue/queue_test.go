package queue

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubecore/chainops/internal/domain/model"
)

func TestJobFamilyRouting(t *testing.T) {
	tests := []struct {
		kind   model.TxType
		family string
	}{
		{model.TxTypeTokenMint, "token"},
		{model.TxTypeTokenCreate, "token"},
		{model.TxTypeNftMint, "nft"},
		{model.TxTypeStakingStake, "staking"},
		{model.TxTypeDefiSwap, "defi"},
		{model.TxTypeCrossChain, "bridge"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.family, Job{Kind: tt.kind}.Family())
		assert.Contains(t, Families, tt.family)
	}
}

func TestJobCodecRoundtrip(t *testing.T) {
	job := Job{
		TransactionID: uuid.New(),
		Kind:          model.TxTypeStakingStake,
		Attempt:       2,
		EnqueuedAt:    time.Now().UTC().Truncate(time.Second),
	}

	encoded, err := encodeJob(job)
	require.NoError(t, err)

	decoded, err := decodeJob(encoded)
	require.NoError(t, err)
	assert.Equal(t, job, decoded)

	_, err = decodeJob("{not json")
	assert.Error(t, err)
}

func TestMemoryBrokerDeliveryAndAck(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	job := Job{TransactionID: uuid.New(), Kind: model.TxTypeTokenMint, EnqueuedAt: time.Now()}
	require.NoError(t, b.Enqueue(ctx, job))

	depth, err := b.Depth(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	msg, err := b.Dequeue(ctx, "token", "worker-1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, job.TransactionID, msg.Job.TransactionID)

	// Dequeued but unacked still counts toward depth.
	depth, err = b.Depth(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
	assert.Equal(t, 1, b.PendingCount("token"))

	require.NoError(t, b.Ack(ctx, "token", msg.ID))
	depth, err = b.Depth(ctx, "token")
	require.NoError(t, err)
	assert.Equal(t, int64(0), depth)
}

func TestMemoryBrokerEmptyDequeueReturnsNil(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()

	msg, err := b.Dequeue(context.Background(), "nft", "worker-1")
	require.NoError(t, err)
	assert.Nil(t, msg)
}

func TestMemoryBrokerFamilyIsolation(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()
	ctx := context.Background()

	require.NoError(t, b.Enqueue(ctx, Job{TransactionID: uuid.New(), Kind: model.TxTypeCrossChain}))

	msg, err := b.Dequeue(ctx, "token", "worker-1")
	require.NoError(t, err)
	assert.Nil(t, msg)

	msg, err = b.Dequeue(ctx, "bridge", "worker-1")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, model.TxTypeCrossChain, msg.Job.Kind)
}
