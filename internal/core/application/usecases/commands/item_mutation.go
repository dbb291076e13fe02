package commands

import (
	"context"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/ports"
)

// mutateItem loads an item, applies fn, writes it back with the version check
// and appends an audit row, all in one transaction. fn runs against the
// aggregate so the item's own immutability rules apply first.
func mutateItem(
	ctx context.Context,
	uowFactory UoWFactory,
	id kernel.UUID,
	actor kernel.Actor,
	action string,
	now time.Time,
	fn func(it *item.Item) error,
) (*item.Item, error) {
	uow := uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	items := uow.ItemRepository()
	it, err := items.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := snapshotItem(it)
	if err = fn(it); err != nil {
		return nil, err
	}
	if err = items.Update(ctx, it); err != nil {
		return nil, err
	}
	if err = uow.AuditRepository().Append(ctx, ports.AuditEntry{
		Table:     AuditTableItems,
		RecordID:  it.ID().String(),
		Action:    action,
		OldData:   before,
		NewData:   snapshotItem(it),
		ActorID:   actor.ID,
		Timestamp: now,
	}); err != nil {
		return nil, err
	}
	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}
	return it, nil
}
