// Package header models the document that groups item lines: an RFQ or a
// sales order. A header carries no workflow state of its own.
package header

import (
	"errors"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"
)

var ErrHeaderIsNotConstructed = errors.New("Header must be created via NewHeader or RestoreHeader")

// Header is a pure container for the items of one document.
type Header struct {
	id          kernel.UUID
	kind        item.Kind
	reference   string
	customerRef string
	documentAt  time.Time
	createdBy   string
	createdAt   time.Time

	isConstructed bool
}

// NewHeader creates a header for items of kind. Reference is the human
// document number (RFQ-2025-0042), customerRef identifies the buyer.
func NewHeader(
	id kernel.UUID,
	kind item.Kind,
	reference, customerRef string,
	documentAt time.Time,
	actor kernel.Actor,
	now time.Time,
) (*Header, error) {
	var refErr, custErr error
	if reference == "" {
		refErr = errs.NewValueIsRequiredError("reference")
	}
	if customerRef == "" {
		custErr = errs.NewValueIsRequiredError("customer reference")
	}
	if err := errors.Join(id.Validate(), kind.Validate(), refErr, custErr, actor.Validate()); err != nil {
		return nil, err
	}
	if documentAt.IsZero() {
		documentAt = now
	}

	return &Header{
		id:            id,
		kind:          kind,
		reference:     reference,
		customerRef:   customerRef,
		documentAt:    documentAt,
		createdBy:     actor.ID,
		createdAt:     now,
		isConstructed: true,
	}, nil
}

// RestoreHeader rebuilds a header from storage.
func RestoreHeader(
	id kernel.UUID,
	kind item.Kind,
	reference, customerRef string,
	documentAt time.Time,
	createdBy string,
	createdAt time.Time,
) (*Header, error) {
	if err := errors.Join(id.Validate(), kind.Validate()); err != nil {
		return nil, err
	}
	return &Header{
		id:            id,
		kind:          kind,
		reference:     reference,
		customerRef:   customerRef,
		documentAt:    documentAt,
		createdBy:     createdBy,
		createdAt:     createdAt,
		isConstructed: true,
	}, nil
}

func (h *Header) Validate() error {
	if h == nil || !h.isConstructed {
		return ErrHeaderIsNotConstructed
	}
	return nil
}

func (h *Header) ID() kernel.UUID       { return h.id }
func (h *Header) Kind() item.Kind       { return h.kind }
func (h *Header) Reference() string     { return h.reference }
func (h *Header) CustomerRef() string   { return h.customerRef }
func (h *Header) DocumentAt() time.Time { return h.documentAt }
func (h *Header) CreatedBy() string     { return h.createdBy }
func (h *Header) CreatedAt() time.Time  { return h.createdAt }
