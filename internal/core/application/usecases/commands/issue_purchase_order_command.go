package commands

import (
	"errors"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/guard"
)

var ErrIssuePurchaseOrderCommandIsNotConstructed = errors.New(
	"IssuePurchaseOrderCommand must be created via NewIssuePurchaseOrderCommand constructor",
)

// IssuePurchaseOrderCommand moves an approved draft purchase order to ISSUED.
type IssuePurchaseOrderCommand struct {
	recordID kernel.UUID
	actor    kernel.Actor

	guard guard.ConstructorGuard
}

func NewIssuePurchaseOrderCommand(recordID kernel.UUID, actor kernel.Actor) (IssuePurchaseOrderCommand, error) {
	if err := errors.Join(recordID.Validate(), actor.Validate()); err != nil {
		return IssuePurchaseOrderCommand{}, err
	}
	return IssuePurchaseOrderCommand{recordID: recordID, actor: actor, guard: guard.NewConstructorGuard()}, nil
}

func (c IssuePurchaseOrderCommand) RecordID() kernel.UUID { return c.recordID }
func (c IssuePurchaseOrderCommand) Actor() kernel.Actor   { return c.actor }

func (c IssuePurchaseOrderCommand) Validate() error {
	return c.guard.Validate(ErrIssuePurchaseOrderCommandIsNotConstructed)
}
