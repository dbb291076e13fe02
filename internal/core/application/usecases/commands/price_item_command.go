package commands

import (
	"errors"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"
	"tradeflow/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

var ErrPriceItemCommandIsNotConstructed = errors.New(
	"PriceItemCommand must be created via NewPriceItemCommand constructor",
)

// PriceItemCommand records the unit price a pricing analyst settled on.
type PriceItemCommand struct {
	itemID    kernel.UUID
	unitPrice decimal.Decimal
	currency  string
	actor     kernel.Actor

	guard guard.ConstructorGuard
}

func NewPriceItemCommand(itemID kernel.UUID, unitPrice decimal.Decimal, currency string, actor kernel.Actor) (PriceItemCommand, error) {
	if _, err := kernel.NewMoney(unitPrice, currency); err != nil {
		return PriceItemCommand{}, err
	}
	var zeroErr error
	if unitPrice.IsZero() {
		zeroErr = errs.NewValueIsInvalidError("unit price")
	}
	if err := errors.Join(itemID.Validate(), zeroErr, actor.Validate()); err != nil {
		return PriceItemCommand{}, err
	}
	return PriceItemCommand{
		itemID:    itemID,
		unitPrice: unitPrice,
		currency:  currency,
		actor:     actor,
		guard:     guard.NewConstructorGuard(),
	}, nil
}

func (c PriceItemCommand) ItemID() kernel.UUID        { return c.itemID }
func (c PriceItemCommand) UnitPrice() decimal.Decimal { return c.unitPrice }
func (c PriceItemCommand) Currency() string           { return c.currency }
func (c PriceItemCommand) Actor() kernel.Actor        { return c.actor }

func (c PriceItemCommand) Validate() error {
	return c.guard.Validate(ErrPriceItemCommandIsNotConstructed)
}
