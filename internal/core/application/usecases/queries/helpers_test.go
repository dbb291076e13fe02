package queries_test

import (
	"testing"
	"time"

	"tradeflow/internal/adapters/out/memory"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

type allowAll struct{}

func (allowAll) RoleHasAccess(kernel.Role, string, string) bool { return true }

type itemOption func(p *item.RestoreParams)

func ownedBy(owner string) itemOption {
	return func(p *item.RestoreParams) { p.OwnerID = owner }
}

func enteredAt(t time.Time) itemOption {
	return func(p *item.RestoreParams) { p.StateEnteredAt = t }
}

func priced(price string) itemOption {
	return func(p *item.RestoreParams) {
		d := decimal.RequireFromString(price)
		p.UnitPrice = &d
		p.Currency = "USD"
	}
}

func deleted() itemOption {
	return func(p *item.RestoreParams) {
		at := baseTime
		p.Audit.DeletedAt = &at
		p.Audit.DeletedBy = "u-sales"
	}
}

func seedItem(t *testing.T, store *memory.Store, kind item.Kind, state item.State, opts ...itemOption) *item.Item {
	t.Helper()
	p := item.RestoreParams{
		ID:             kernel.NewUUID(),
		Kind:           kind,
		HeaderID:       kernel.NewUUID(),
		ProductID:      "VALVE-DN50",
		Quantity:       10,
		State:          state,
		StateEnteredAt: baseTime,
		OwnerID:        "u-owner",
		Version:        1,
	}
	for _, opt := range opts {
		opt(&p)
	}
	it, err := item.RestoreItem(p)
	require.NoError(t, err)
	store.SeedItem(it)
	return it
}
