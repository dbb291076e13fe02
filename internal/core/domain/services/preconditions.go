package services

import (
	"context"
	"fmt"
	"slices"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/ports"

	"github.com/shopspring/decimal"
)

// Names of the built-in preconditions referenced from the transition table.
const (
	PreconditionVendorQuoteSelected     = "vendor_quote_selected"
	PreconditionOrderItemLinked         = "order_item_linked"
	PreconditionCustomerCreditAvailable = "customer_credit_available"
	PreconditionStockReserved           = "stock_reserved"
	PreconditionQCInspectionPassed      = "qc_inspection_passed"
	PreconditionShipmentCreated         = "shipment_created"
	PreconditionInvoiceCreated          = "invoice_created"
	PreconditionPaymentRecorded         = "payment_recorded"
)

// PreconditionInput is what a precondition may inspect. Repositories are bound
// to the caller's transaction.
type PreconditionInput struct {
	Item    *item.Item
	Records ports.RecordRepository
	Headers ports.HeaderRepository
}

// Precondition evaluates one named business rule. A false result carries the
// reason shown to the user; an error means the rule could not be evaluated.
type Precondition func(ctx context.Context, in PreconditionInput) (ok bool, reason string, err error)

// Preconditions maps rule names to evaluators.
type Preconditions struct {
	checks map[string]Precondition
}

// NewPreconditions returns a registry holding every built-in rule.
func NewPreconditions(credit ports.CreditChecker) *Preconditions {
	p := &Preconditions{checks: make(map[string]Precondition)}
	p.Register(PreconditionVendorQuoteSelected, recordExists(record.KindVendorQuote, "no vendor quote has been selected"))
	p.Register(PreconditionOrderItemLinked, orderItemLinked)
	p.Register(PreconditionCustomerCreditAvailable, customerCreditAvailable(credit))
	p.Register(PreconditionStockReserved, stockReserved)
	p.Register(PreconditionQCInspectionPassed, qcInspectionPassed)
	p.Register(PreconditionShipmentCreated, recordExists(record.KindShipment, "no shipment has been created"))
	p.Register(PreconditionInvoiceCreated, recordExists(record.KindInvoice, "no invoice has been created"))
	p.Register(PreconditionPaymentRecorded, paymentRecorded)
	return p
}

// Register adds or replaces a rule.
func (p *Preconditions) Register(name string, fn Precondition) {
	p.checks[name] = fn
}

func (p *Preconditions) Has(name string) bool {
	_, ok := p.checks[name]
	return ok
}

// Evaluate runs the named rule. Unknown names are an error, never a pass.
func (p *Preconditions) Evaluate(ctx context.Context, name string, in PreconditionInput) (bool, string, error) {
	fn, ok := p.checks[name]
	if !ok {
		return false, "", fmt.Errorf("precondition %q is not registered", name)
	}
	return fn(ctx, in)
}

func recordExists(kind record.Kind, reason string) Precondition {
	return func(ctx context.Context, in PreconditionInput) (bool, string, error) {
		recs, err := in.Records.ListByItem(ctx, in.Item.ID(), kind)
		if err != nil {
			return false, "", err
		}
		if len(recs) == 0 {
			return false, reason, nil
		}
		return true, "", nil
	}
}

func orderItemLinked(_ context.Context, in PreconditionInput) (bool, string, error) {
	if in.Item.LinkedOrderItem() == nil {
		return false, "RFQ item has not been converted into an order item", nil
	}
	return true, "", nil
}

func customerCreditAvailable(credit ports.CreditChecker) Precondition {
	return func(ctx context.Context, in PreconditionInput) (bool, string, error) {
		value, priced := in.Item.Value()
		if !priced {
			return false, "item has no price to check credit against", nil
		}
		h, err := in.Headers.Get(ctx, in.Item.HeaderID())
		if err != nil {
			return false, "", err
		}
		available, currency, err := credit.AvailableCredit(ctx, h.CustomerRef())
		if err != nil {
			return false, "", err
		}
		if currency != value.Currency {
			return false, fmt.Sprintf("credit for %s is held in %s, order is in %s", h.CustomerRef(), currency, value.Currency), nil
		}
		if available.LessThan(value.Amount) {
			return false, fmt.Sprintf(
				"customer %s has %s %s available, order needs %s",
				h.CustomerRef(), available.StringFixed(2), currency, value,
			), nil
		}
		return true, "", nil
	}
}

func stockReserved(ctx context.Context, in PreconditionInput) (bool, string, error) {
	recs, err := in.Records.ListByItem(ctx, in.Item.ID(), record.KindReservation)
	if err != nil {
		return false, "", err
	}
	reserved := 0
	for _, r := range recs {
		reserved += r.Quantity()
	}
	if reserved < in.Item.Quantity() {
		return false, fmt.Sprintf("%d of %d units reserved", reserved, in.Item.Quantity()), nil
	}
	return true, "", nil
}

func qcInspectionPassed(ctx context.Context, in PreconditionInput) (bool, string, error) {
	recs, err := in.Records.ListByItem(ctx, in.Item.ID(), record.KindQCInspection)
	if err != nil {
		return false, "", err
	}
	if len(recs) == 0 {
		return false, "no inspection has been recorded", nil
	}
	if slices.ContainsFunc(recs, func(r *record.Record) bool { return r.Status() == record.StatusPassed }) {
		return true, "", nil
	}
	// Units reserved from stock need no inspection and can still ship short.
	reservations, err := in.Records.ListByItem(ctx, in.Item.ID(), record.KindReservation)
	if err != nil {
		return false, "", err
	}
	if slices.ContainsFunc(reservations, func(r *record.Record) bool { return r.Attribute(record.AttrLotReference) == "" }) {
		return true, "", nil
	}
	return false, "no inspected lot has passed", nil
}

func paymentRecorded(ctx context.Context, in PreconditionInput) (bool, string, error) {
	invoices, err := in.Records.ListByItem(ctx, in.Item.ID(), record.KindInvoice)
	if err != nil {
		return false, "", err
	}
	payments, err := in.Records.ListByItem(ctx, in.Item.ID(), record.KindPayment)
	if err != nil {
		return false, "", err
	}
	if len(payments) == 0 {
		return false, "no payment has been recorded", nil
	}
	invoiced, paid := decimal.Zero, decimal.Zero
	for _, r := range invoices {
		invoiced = invoiced.Add(r.Amount())
	}
	for _, r := range payments {
		paid = paid.Add(r.Amount())
	}
	if paid.LessThan(invoiced) {
		return false, fmt.Sprintf("%s paid of %s invoiced", paid.StringFixed(2), invoiced.StringFixed(2)), nil
	}
	return true, "", nil
}
