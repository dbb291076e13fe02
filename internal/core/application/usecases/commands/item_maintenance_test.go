package commands_test

import (
	"context"
	"testing"

	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkOrderItem(t *testing.T) {
	e := newEnv(t)
	rfq := e.seed(t, item.KindRFQItem, item.StateWon, "10")
	order := e.seed(t, item.KindOrderItem, item.StateOrderCreated, "10")
	h, err := commands.NewLinkOrderItemCommandHandler(e.factory, fixedClock)
	require.NoError(t, err)

	missing, err := commands.NewLinkOrderItemCommand(rfq.ID(), kernel.NewUUID(), actor(kernel.RoleSalesManager))
	require.NoError(t, err)
	require.ErrorIs(t, h.Handle(context.Background(), missing), errs.ErrObjectNotFound)

	cmd, err := commands.NewLinkOrderItemCommand(rfq.ID(), order.ID(), actor(kernel.RoleSalesManager))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), cmd))

	stored := e.get(t, rfq.ID())
	require.NotNil(t, stored.LinkedOrderItem())
	assert.Equal(t, order.ID(), *stored.LinkedOrderItem())
	assert.Equal(t, int64(2), stored.Version())

	result, err := e.transition(t, rfq.ID(), item.StateRFQClosed, kernel.SystemActor, "")
	require.NoError(t, err)
	assert.Equal(t, item.StateRFQClosed, result.To)

	require.ErrorIs(t, h.Handle(context.Background(), cmd), errs.ErrImmutableItem)
}

func TestPriceItem(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindRFQItem, item.StatePricing, "")
	h, err := commands.NewPriceItemCommandHandler(e.factory, fixedClock)
	require.NoError(t, err)

	_, err = commands.NewPriceItemCommand(it.ID(), decimal.Zero, "USD", actor(kernel.RolePricingAnalyst))
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	_, err = commands.NewPriceItemCommand(it.ID(), decimal.NewFromInt(4), "", actor(kernel.RolePricingAnalyst))
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	cmd, err := commands.NewPriceItemCommand(it.ID(), decimal.RequireFromString("4.75"), "USD", actor(kernel.RolePricingAnalyst))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), cmd))

	result, err := e.transition(t, it.ID(), item.StatePriceApproval, actor(kernel.RolePricingAnalyst), "")
	require.NoError(t, err)
	assert.Equal(t, item.StatePriceApproval, result.To)
}

func TestDeleteItem(t *testing.T) {
	e := newEnv(t)
	h, err := commands.NewDeleteItemCommandHandler(e.factory, fixedClock)
	require.NoError(t, err)

	submitted := e.seed(t, item.KindRFQItem, item.StateRFQSubmitted, "")
	cmd, err := commands.NewDeleteItemCommand(submitted.ID(), actor(kernel.RoleSalesManager))
	require.NoError(t, err)
	require.ErrorIs(t, h.Handle(context.Background(), cmd), errs.ErrValueIsInvalid)
	assert.False(t, e.get(t, submitted.ID()).IsDeleted())

	draft := e.seed(t, item.KindRFQItem, item.StateDraft, "")
	cmd, err = commands.NewDeleteItemCommand(draft.ID(), actor(kernel.RoleSalesManager))
	require.NoError(t, err)
	require.NoError(t, h.Handle(context.Background(), cmd))

	stored := e.get(t, draft.ID())
	assert.True(t, stored.IsDeleted())
	assert.Equal(t, "u-SALES_MANAGER", stored.Audit().DeletedBy)
}
