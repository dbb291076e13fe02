package commands

import (
	"errors"
	"maps"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/pkg/guard"
)

var ErrCreateRecordCommandIsNotConstructed = errors.New(
	"CreateRecordCommand must be created via NewCreateRecordCommand constructor",
)

// CreateRecordCommand attaches a business record (requisition, receipt,
// inspection, shipment, invoice, ...) to an open item.
type CreateRecordCommand struct {
	kind   record.Kind
	itemID kernel.UUID
	params record.Params
	actor  kernel.Actor

	guard guard.ConstructorGuard
}

func NewCreateRecordCommand(kind record.Kind, itemID kernel.UUID, params record.Params, actor kernel.Actor) (CreateRecordCommand, error) {
	if err := errors.Join(kind.Validate(), itemID.Validate(), actor.Validate()); err != nil {
		return CreateRecordCommand{}, err
	}
	params.Attributes = maps.Clone(params.Attributes)
	return CreateRecordCommand{
		kind:   kind,
		itemID: itemID,
		params: params,
		actor:  actor,
		guard:  guard.NewConstructorGuard(),
	}, nil
}

func (c CreateRecordCommand) Kind() record.Kind   { return c.kind }
func (c CreateRecordCommand) ItemID() kernel.UUID { return c.itemID }
func (c CreateRecordCommand) Actor() kernel.Actor { return c.actor }
func (c CreateRecordCommand) Params() record.Params {
	p := c.params
	p.Attributes = maps.Clone(c.params.Attributes)
	return p
}

func (c CreateRecordCommand) Validate() error {
	return c.guard.Validate(ErrCreateRecordCommandIsNotConstructed)
}
