package commands

import (
	"errors"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/guard"
)

var ErrDeleteItemCommandIsNotConstructed = errors.New(
	"DeleteItemCommand must be created via NewDeleteItemCommand constructor",
)

// DeleteItemCommand soft-deletes an item that has not left its initial state.
type DeleteItemCommand struct {
	itemID kernel.UUID
	actor  kernel.Actor

	guard guard.ConstructorGuard
}

func NewDeleteItemCommand(itemID kernel.UUID, actor kernel.Actor) (DeleteItemCommand, error) {
	if err := errors.Join(itemID.Validate(), actor.Validate()); err != nil {
		return DeleteItemCommand{}, err
	}
	return DeleteItemCommand{itemID: itemID, actor: actor, guard: guard.NewConstructorGuard()}, nil
}

func (c DeleteItemCommand) ItemID() kernel.UUID { return c.itemID }
func (c DeleteItemCommand) Actor() kernel.Actor { return c.actor }

func (c DeleteItemCommand) Validate() error {
	return c.guard.Validate(ErrDeleteItemCommandIsNotConstructed)
}
