package commands_test

import (
	"context"
	"testing"
	"time"

	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubmitDocumentCommand(t *testing.T) {
	sales := actor(kernel.RoleSalesExecutive)

	_, err := commands.NewSubmitDocumentCommand(item.KindRFQItem, "RFQ-1", "CUST", time.Time{}, nil, sales)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	price := decimal.NewFromInt(5)
	_, err = commands.NewSubmitDocumentCommand(item.KindRFQItem, "RFQ-1", "CUST", time.Time{}, []commands.DocumentLine{
		{ProductID: "", Quantity: 1},
		{ProductID: "P", Quantity: 0},
		{ProductID: "P", Quantity: 1, UnitPrice: &price},
	}, sales)
	require.ErrorIs(t, err, errs.ErrValueIsRequired)
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
	assert.Contains(t, err.Error(), "line 1")
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), "line 3")

	_, err = commands.NewSubmitDocumentCommand("QUOTE_ITEM", "RFQ-1", "CUST", time.Time{}, []commands.DocumentLine{
		{ProductID: "P", Quantity: 1},
	}, sales)
	require.Error(t, err)

	require.ErrorIs(t, commands.SubmitDocumentCommand{}.Validate(), commands.ErrSubmitDocumentCommandIsNotConstructed)
}

func TestSubmitDocument_CreatesHeaderAndItems(t *testing.T) {
	e := newEnv(t)
	h, err := commands.NewSubmitDocumentCommandHandler(e.factory, discardLogger(), fixedClock)
	require.NoError(t, err)

	price := decimal.RequireFromString("18.40")
	cmd, err := commands.NewSubmitDocumentCommand(item.KindOrderItem, "SO-2025-0007", "CUST-ACME", time.Time{},
		[]commands.DocumentLine{
			{ProductID: "VALVE-DN50", Quantity: 40, UnitPrice: &price, Currency: "USD"},
			{ProductID: "GASKET-DN50", Quantity: 80},
		},
		actor(kernel.RoleSalesManager),
	)
	require.NoError(t, err)

	doc, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Len(t, doc.ItemIDs, 2)
	assert.Equal(t, cmd.HeaderID(), doc.HeaderID)

	uow := e.factory.Create()
	hdr, err := uow.HeaderRepository().Get(context.Background(), doc.HeaderID)
	require.NoError(t, err)
	assert.Equal(t, "CUST-ACME", hdr.CustomerRef())
	assert.Equal(t, baseTime, hdr.DocumentAt())

	items, err := uow.ItemRepository().ListByHeader(context.Background(), doc.HeaderID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, item.StateOrderCreated, it.State())
		assert.Equal(t, int64(1), it.Version())
		assert.Equal(t, "u-SALES_MANAGER", it.Audit().CreatedBy)
		assert.Equal(t, baseTime, it.StateEnteredAt())
	}
	assert.Equal(t, "VALVE-DN50", items[0].ProductID())
	value, ok := items[0].Value()
	require.True(t, ok)
	assert.Equal(t, "736.00 USD", value.String())
	_, ok = items[1].Value()
	assert.False(t, ok)

	var creates int
	for _, entry := range e.store.AuditEntries() {
		if entry.Action == ports.AuditActionCreate {
			creates++
		}
	}
	assert.Equal(t, 3, creates)
}
