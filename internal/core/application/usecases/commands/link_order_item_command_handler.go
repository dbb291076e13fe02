package commands

import (
	"context"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

// LinkOrderItemCommandHandler sets the lineage pointer on an RFQ item. The
// order item must exist; a closed RFQ item is rejected as IMMUTABLE_ITEM.
type LinkOrderItemCommandHandler struct {
	uowFactory UoWFactory
	now        Clock
}

func NewLinkOrderItemCommandHandler(uowFactory UoWFactory, now Clock) (*LinkOrderItemCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if now == nil {
		now = time.Now
	}
	return &LinkOrderItemCommandHandler{uowFactory: uowFactory, now: now}, nil
}

func (h *LinkOrderItemCommandHandler) Handle(ctx context.Context, cmd LinkOrderItemCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	if _, err := h.uowFactory.Create().ItemRepository().Get(ctx, cmd.OrderItemID()); err != nil {
		return err
	}

	now := h.now()
	_, err := mutateItem(ctx, h.uowFactory, cmd.RFQItemID(), cmd.Actor(), ports.AuditActionUpdate, now,
		func(it *item.Item) error {
			return it.LinkOrderItem(cmd.OrderItemID(), cmd.Actor(), now)
		},
	)
	return err
}
