package commands

import (
	"context"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

type DeleteItemCommandHandler struct {
	uowFactory UoWFactory
	now        Clock
}

func NewDeleteItemCommandHandler(uowFactory UoWFactory, now Clock) (*DeleteItemCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if now == nil {
		now = time.Now
	}
	return &DeleteItemCommandHandler{uowFactory: uowFactory, now: now}, nil
}

func (h *DeleteItemCommandHandler) Handle(ctx context.Context, cmd DeleteItemCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	now := h.now()
	_, err := mutateItem(ctx, h.uowFactory, cmd.ItemID(), cmd.Actor(), ports.AuditActionDelete, now,
		func(it *item.Item) error {
			return it.SoftDelete(cmd.Actor(), now)
		},
	)
	return err
}
