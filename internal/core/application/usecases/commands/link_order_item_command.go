package commands

import (
	"errors"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/guard"
)

var ErrLinkOrderItemCommandIsNotConstructed = errors.New(
	"LinkOrderItemCommand must be created via NewLinkOrderItemCommand constructor",
)

// LinkOrderItemCommand records which order line a won RFQ line became.
type LinkOrderItemCommand struct {
	rfqItemID   kernel.UUID
	orderItemID kernel.UUID
	actor       kernel.Actor

	guard guard.ConstructorGuard
}

func NewLinkOrderItemCommand(rfqItemID, orderItemID kernel.UUID, actor kernel.Actor) (LinkOrderItemCommand, error) {
	if err := errors.Join(rfqItemID.Validate(), orderItemID.Validate(), actor.Validate()); err != nil {
		return LinkOrderItemCommand{}, err
	}
	return LinkOrderItemCommand{
		rfqItemID:   rfqItemID,
		orderItemID: orderItemID,
		actor:       actor,
		guard:       guard.NewConstructorGuard(),
	}, nil
}

func (c LinkOrderItemCommand) RFQItemID() kernel.UUID   { return c.rfqItemID }
func (c LinkOrderItemCommand) OrderItemID() kernel.UUID { return c.orderItemID }
func (c LinkOrderItemCommand) Actor() kernel.Actor      { return c.actor }

func (c LinkOrderItemCommand) Validate() error {
	return c.guard.Validate(ErrLinkOrderItemCommandIsNotConstructed)
}
