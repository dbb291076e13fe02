package memory_test

import (
	"context"
	"testing"

	"tradeflow/internal/adapters/out/memory"
	"tradeflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventory_ReserveReceiveIssue(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory()
	inv.SetOnHand("FLANGE-DN80", 5)

	require.NoError(t, inv.Reserve(ctx, "FLANGE-DN80", 3, "SO-1"))
	err := inv.Reserve(ctx, "FLANGE-DN80", 3, "SO-2")
	require.ErrorContains(t, err, "only 2 available")

	onHand, err := inv.Receive(ctx, "FLANGE-DN80", 4, "GRN-1")
	require.NoError(t, err)
	assert.Equal(t, 9, onHand)

	onHand, err = inv.Issue(ctx, "FLANGE-DN80", 3, "SO-1")
	require.NoError(t, err)
	assert.Equal(t, 6, onHand)

	available, err := inv.Available(ctx, "FLANGE-DN80")
	require.NoError(t, err)
	assert.Equal(t, 6, available)
}

func TestInventory_RepeatedReferenceIsNoOp(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory()

	for range 3 {
		onHand, err := inv.Receive(ctx, "FLANGE-DN80", 6, "GRN-7A")
		require.NoError(t, err)
		assert.Equal(t, 6, onHand)
		require.NoError(t, inv.Reserve(ctx, "FLANGE-DN80", 6, "GRN-7A"))
	}

	reserved, err := inv.Reserved(ctx, "FLANGE-DN80", "GRN-7A")
	require.NoError(t, err)
	assert.Equal(t, 6, reserved)

	for range 2 {
		onHand, err := inv.Issue(ctx, "FLANGE-DN80", 6, "SO-0042")
		require.NoError(t, err)
		assert.Zero(t, onHand)
	}
	assert.Len(t, inv.Movements("FLANGE-DN80"), 3)
}

func TestInventory_RejectsBadMovements(t *testing.T) {
	ctx := context.Background()
	inv := memory.NewInventory()

	_, err := inv.Receive(ctx, "FLANGE-DN80", 0, "GRN-0")
	require.ErrorIs(t, err, errs.ErrValueIsOutOfRange)
	_, err = inv.Receive(ctx, "FLANGE-DN80", 2, "")
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	reserved, err := inv.Reserved(ctx, "FLANGE-DN80", "SO-NONE")
	require.NoError(t, err)
	assert.Zero(t, reserved)
}
