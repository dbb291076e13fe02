package services

import (
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/pkg/errs"
)

// ImmutabilityGuard rejects any work on an item that has reached a terminal
// state. The executor calls it before anything else; repositories repeat the
// same check when writing.
type ImmutabilityGuard struct{}

func NewImmutabilityGuard() ImmutabilityGuard {
	return ImmutabilityGuard{}
}

// AssertMutable returns a non-retryable IMMUTABLE_ITEM error naming the item
// and its terminal state.
func (ImmutabilityGuard) AssertMutable(it *item.Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	if it.IsTerminal() {
		return errs.NewImmutableItemError(it.ID().String(), string(it.State()))
	}
	return nil
}
