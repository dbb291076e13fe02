// Package record models the business documents derived from item work:
// quotes, reservations, purchase orders, goods receipts, inspections,
// nonconformances, shipments, invoices and payments.
package record

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

var ErrRecordIsNotConstructed = errors.New("Record must be created via NewRecord or RestoreRecord")

type Kind string

const (
	KindQuote               Kind = "QUOTE"
	KindSalesOrder          Kind = "SALES_ORDER"
	KindVendorQuote         Kind = "VENDOR_QUOTE"
	KindReservation         Kind = "RESERVATION"
	KindPurchaseRequisition Kind = "PURCHASE_REQUISITION"
	KindPurchaseOrder       Kind = "PURCHASE_ORDER"
	KindGoodsReceipt        Kind = "GOODS_RECEIPT"
	KindQCInspection        Kind = "QC_INSPECTION"
	KindNonconformance      Kind = "NONCONFORMANCE"
	KindShipment            Kind = "SHIPMENT"
	KindInvoice             Kind = "INVOICE"
	KindPayment             Kind = "PAYMENT"
)

var prefixes = map[Kind]string{
	KindQuote:               "QT",
	KindSalesOrder:          "SO",
	KindVendorQuote:         "VQ",
	KindReservation:         "RS",
	KindPurchaseRequisition: "PR",
	KindPurchaseOrder:       "PO",
	KindGoodsReceipt:        "GRN",
	KindQCInspection:        "QC",
	KindNonconformance:      "NCR",
	KindShipment:            "SH",
	KindInvoice:             "INV",
	KindPayment:             "PAY",
}

func Kinds() []Kind {
	return slices.Sorted(maps.Keys(prefixes))
}

func (k Kind) Validate() error {
	if _, ok := prefixes[k]; !ok {
		return errs.NewValueIsInvalidErrorWithCause("record kind", fmt.Errorf("%q is not a record kind", string(k)))
	}
	return nil
}

// Record statuses. Most records are created OPEN and never change; purchase
// orders go DRAFT -> ISSUED and inspections carry their outcome.
const (
	StatusOpen   = "OPEN"
	StatusDraft  = "DRAFT"
	StatusIssued = "ISSUED"
	StatusPassed = "PASSED"
	StatusFailed = "FAILED"
	StatusPosted = "POSTED"
)

// Attribute keys used across records.
const (
	AttrVendorID     = "vendor_id"
	AttrLotReference = "lot_reference"
	AttrInspector    = "inspector"
	AttrNotes        = "notes"
	AttrReason       = "reason"
	AttrSourceRecord = "source_record"
	AttrRFQItemID    = "rfq_item_id"
)

// Record is an append-mostly business document attached to an item.
type Record struct {
	id         kernel.UUID
	kind       Kind
	itemID     kernel.UUID
	headerID   kernel.UUID
	reference  string
	quantity   int
	amount     decimal.Decimal
	currency   string
	status     string
	attributes map[string]string
	createdBy  string
	createdAt  time.Time

	isConstructed bool
}

// Params carries the optional parts of a new record.
type Params struct {
	HeaderID   kernel.UUID
	Quantity   int
	Amount     decimal.Decimal
	Currency   string
	Status     string
	Attributes map[string]string
}

// NewRecord creates a record of kind for itemID. The reference is derived
// from the kind prefix and the record id.
func NewRecord(kind Kind, itemID kernel.UUID, p Params, actor kernel.Actor, now time.Time) (*Record, error) {
	var qtyErr, amountErr error
	if p.Quantity < 0 {
		qtyErr = errs.NewValueIsOutOfRangeError("quantity", p.Quantity, 0, "unbounded")
	}
	if p.Amount.IsNegative() {
		amountErr = errs.NewValueIsOutOfRangeError("amount", p.Amount, 0, "unbounded")
	}
	if err := errors.Join(kind.Validate(), itemID.Validate(), qtyErr, amountErr, actor.Validate()); err != nil {
		return nil, err
	}

	id := kernel.NewUUID()
	status := p.Status
	if status == "" {
		status = StatusOpen
	}
	return &Record{
		id:            id,
		kind:          kind,
		itemID:        itemID,
		headerID:      p.HeaderID,
		reference:     Reference(kind, id),
		quantity:      p.Quantity,
		amount:        p.Amount,
		currency:      p.Currency,
		status:        status,
		attributes:    maps.Clone(p.Attributes),
		createdBy:     actor.ID,
		createdAt:     now,
		isConstructed: true,
	}, nil
}

// RestoreRecord rebuilds a record from storage.
func RestoreRecord(
	id kernel.UUID,
	kind Kind,
	itemID kernel.UUID,
	reference string,
	p Params,
	createdBy string,
	createdAt time.Time,
) (*Record, error) {
	if err := errors.Join(id.Validate(), kind.Validate(), itemID.Validate()); err != nil {
		return nil, err
	}
	return &Record{
		id:            id,
		kind:          kind,
		itemID:        itemID,
		headerID:      p.HeaderID,
		reference:     reference,
		quantity:      p.Quantity,
		amount:        p.Amount,
		currency:      p.Currency,
		status:        p.Status,
		attributes:    maps.Clone(p.Attributes),
		createdBy:     createdBy,
		createdAt:     createdAt,
		isConstructed: true,
	}, nil
}

// Reference renders a human document number such as PO-1F3A9C2B.
func Reference(kind Kind, id kernel.UUID) string {
	short := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return prefixes[kind] + "-" + short
}

func (r *Record) Validate() error {
	if r == nil || !r.isConstructed {
		return ErrRecordIsNotConstructed
	}
	return nil
}

func (r *Record) ID() kernel.UUID         { return r.id }
func (r *Record) Kind() Kind              { return r.kind }
func (r *Record) ItemID() kernel.UUID     { return r.itemID }
func (r *Record) HeaderID() kernel.UUID   { return r.headerID }
func (r *Record) Reference() string       { return r.reference }
func (r *Record) Quantity() int           { return r.quantity }
func (r *Record) Amount() decimal.Decimal { return r.amount }
func (r *Record) Currency() string        { return r.currency }
func (r *Record) Status() string          { return r.status }
func (r *Record) CreatedBy() string       { return r.createdBy }
func (r *Record) CreatedAt() time.Time    { return r.createdAt }

// Attribute returns a single attribute value.
func (r *Record) Attribute(key string) string {
	return r.attributes[key]
}

// Attributes returns a copy of all attributes.
func (r *Record) Attributes() map[string]string {
	return maps.Clone(r.attributes)
}

// Issue moves a DRAFT purchase order to ISSUED. Issuing twice is a no-op.
func (r *Record) Issue() error {
	switch r.status {
	case StatusIssued:
		return nil
	case StatusDraft:
		r.status = StatusIssued
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause(
			"record status",
			fmt.Errorf("%s %s cannot be issued from %s", r.kind, r.reference, r.status),
		)
	}
}
