package commands

import (
	"context"
	"time"

	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/domain/services"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

// CreateRecordCommandHandler stores a record and its audit row in one
// transaction. Closed items take no new records.
type CreateRecordCommandHandler struct {
	uowFactory UoWFactory
	guard      services.ImmutabilityGuard
	now        Clock
}

func NewCreateRecordCommandHandler(uowFactory UoWFactory, now Clock) (*CreateRecordCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if now == nil {
		now = time.Now
	}
	return &CreateRecordCommandHandler{uowFactory: uowFactory, guard: services.NewImmutabilityGuard(), now: now}, nil
}

func (h *CreateRecordCommandHandler) Handle(ctx context.Context, cmd CreateRecordCommand) (*record.Record, error) {
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

	it, err := uow.ItemRepository().Get(ctx, cmd.ItemID())
	if err != nil {
		return nil, err
	}
	if err = h.guard.AssertMutable(it); err != nil {
		return nil, err
	}

	params := cmd.Params()
	if params.HeaderID.IsZero() {
		params.HeaderID = it.HeaderID()
	}
	rec, err := record.NewRecord(cmd.Kind(), it.ID(), params, cmd.Actor(), h.now())
	if err != nil {
		return nil, err
	}
	if err = uow.RecordRepository().Add(ctx, rec); err != nil {
		return nil, err
	}
	if err = uow.AuditRepository().Append(ctx, ports.AuditEntry{
		Table:     AuditTableRecords,
		RecordID:  rec.ID().String(),
		Action:    ports.AuditActionCreate,
		NewData:   snapshotRecord(rec),
		ActorID:   cmd.Actor().ID,
		Timestamp: rec.CreatedAt(),
	}); err != nil {
		return nil, err
	}
	if err = uow.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}
