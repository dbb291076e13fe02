package commands

import (
	"context"
	"log/slog"
	"time"

	"tradeflow/internal/core/domain/model/header"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

// SubmittedDocument lists what SubmitDocument created.
type SubmittedDocument struct {
	HeaderID kernel.UUID   `json:"header_id"`
	Kind     item.Kind     `json:"kind"`
	ItemIDs  []kernel.UUID `json:"item_ids"`
}

// SubmitDocumentCommandHandler writes a header and its items in one
// transaction, each item at version 1 in its kind's initial state.
type SubmitDocumentCommandHandler struct {
	uowFactory UoWFactory
	logger     *slog.Logger
	now        Clock
}

func NewSubmitDocumentCommandHandler(uowFactory UoWFactory, logger *slog.Logger, now Clock) (*SubmitDocumentCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if now == nil {
		now = time.Now
	}
	return &SubmitDocumentCommandHandler{
		uowFactory: uowFactory,
		logger:     logger.With("component", "documents"),
		now:        now,
	}, nil
}

func (h *SubmitDocumentCommandHandler) Handle(ctx context.Context, cmd SubmitDocumentCommand) (SubmittedDocument, error) {
	if err := cmd.Validate(); err != nil {
		return SubmittedDocument{}, err
	}
	now := h.now()
	actor := cmd.Actor()

	hdr, err := header.NewHeader(cmd.HeaderID(), cmd.Kind(), cmd.Reference(), cmd.CustomerRef(), cmd.DocumentAt(), actor, now)
	if err != nil {
		return SubmittedDocument{}, err
	}

	uow := h.uowFactory.Create()
	if err = uow.Begin(ctx); err != nil {
		return SubmittedDocument{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	if err = uow.HeaderRepository().Add(ctx, hdr); err != nil {
		return SubmittedDocument{}, err
	}
	audit := uow.AuditRepository()
	if err = audit.Append(ctx, ports.AuditEntry{
		Table:     AuditTableHeaders,
		RecordID:  hdr.ID().String(),
		Action:    ports.AuditActionCreate,
		ActorID:   actor.ID,
		Timestamp: now,
	}); err != nil {
		return SubmittedDocument{}, err
	}

	doc := SubmittedDocument{HeaderID: hdr.ID(), Kind: hdr.Kind()}
	items := uow.ItemRepository()
	for _, line := range cmd.Lines() {
		it, err := item.NewItem(kernel.NewUUID(), cmd.Kind(), hdr.ID(), line.ProductID, line.Quantity, actor, now)
		if err != nil {
			return SubmittedDocument{}, err
		}
		if line.UnitPrice != nil {
			if err = it.SetPricing(*line.UnitPrice, line.Currency, actor, now); err != nil {
				return SubmittedDocument{}, err
			}
		}
		if err = items.Add(ctx, it); err != nil {
			return SubmittedDocument{}, err
		}
		if err = audit.Append(ctx, ports.AuditEntry{
			Table:     AuditTableItems,
			RecordID:  it.ID().String(),
			Action:    ports.AuditActionCreate,
			NewData:   snapshotItem(it),
			ActorID:   actor.ID,
			Timestamp: now,
		}); err != nil {
			return SubmittedDocument{}, err
		}
		doc.ItemIDs = append(doc.ItemIDs, it.ID())
	}

	if err = uow.Commit(ctx); err != nil {
		return SubmittedDocument{}, err
	}

	h.logger.InfoContext(ctx, "document submitted",
		"header_id", hdr.ID().String(),
		"kind", string(hdr.Kind()),
		"reference", hdr.Reference(),
		"items", len(doc.ItemIDs),
	)
	return doc, nil
}
