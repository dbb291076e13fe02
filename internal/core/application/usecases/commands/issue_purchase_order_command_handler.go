package commands

import (
	"context"
	"fmt"
	"time"

	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

type IssuePurchaseOrderCommandHandler struct {
	uowFactory UoWFactory
	now        Clock
}

func NewIssuePurchaseOrderCommandHandler(uowFactory UoWFactory, now Clock) (*IssuePurchaseOrderCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if now == nil {
		now = time.Now
	}
	return &IssuePurchaseOrderCommandHandler{uowFactory: uowFactory, now: now}, nil
}

// Handle issues the purchase order. Issuing an already issued order is a no-op
// and writes no audit row.
func (h *IssuePurchaseOrderCommandHandler) Handle(ctx context.Context, cmd IssuePurchaseOrderCommand) (*record.Record, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	records := uow.RecordRepository()
	po, err := records.Get(ctx, cmd.RecordID())
	if err != nil {
		return nil, err
	}
	if po.Kind() != record.KindPurchaseOrder {
		return nil, errs.NewValueIsInvalidErrorWithCause("record", fmt.Errorf("%s is not a purchase order", po.Reference()))
	}
	if po.Status() == record.StatusIssued {
		return po, nil
	}

	before := snapshotRecord(po)
	if err = po.Issue(); err != nil {
		return nil, err
	}
	if err = records.UpdateStatus(ctx, po); err != nil {
		return nil, err
	}
	if err = uow.AuditRepository().Append(ctx, ports.AuditEntry{
		Table:     AuditTableRecords,
		RecordID:  po.ID().String(),
		Action:    ports.AuditActionUpdate,
		OldData:   before,
		NewData:   snapshotRecord(po),
		ActorID:   cmd.Actor().ID,
		Timestamp: h.now(),
	}); err != nil {
		return nil, err
	}
	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}
	return po, nil
}
