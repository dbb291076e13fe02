package commands

import (
	"context"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

type PriceItemCommandHandler struct {
	uowFactory UoWFactory
	now        Clock
}

func NewPriceItemCommandHandler(uowFactory UoWFactory, now Clock) (*PriceItemCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if now == nil {
		now = time.Now
	}
	return &PriceItemCommandHandler{uowFactory: uowFactory, now: now}, nil
}

func (h *PriceItemCommandHandler) Handle(ctx context.Context, cmd PriceItemCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	now := h.now()
	_, err := mutateItem(ctx, h.uowFactory, cmd.ItemID(), cmd.Actor(), ports.AuditActionUpdate, now,
		func(it *item.Item) error {
			return it.SetPricing(cmd.UnitPrice(), cmd.Currency(), cmd.Actor(), now)
		},
	)
	return err
}
