package orchestrator

import (
	"errors"
	"slices"
	"strings"
	"time"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// Lot verdicts.
const (
	VerdictPending = ""
	VerdictPassed  = "PASSED"
	VerdictFailed  = "FAILED"
)

// RecordRef points at a derived record created during a run.
type RecordRef struct {
	ID        kernel.UUID `json:"id"`
	Reference string      `json:"reference"`
}

func refOf(r *record.Record) *RecordRef {
	return &RecordRef{ID: r.ID(), Reference: r.Reference()}
}

// Records holds the id of every record a run has created or adopted.
type Records struct {
	VendorQuote   *RecordRef  `json:"vendor_quote,omitempty"`
	Quote         *RecordRef  `json:"quote,omitempty"`
	SalesOrder    *RecordRef  `json:"sales_order,omitempty"`
	Requisition   *RecordRef  `json:"requisition,omitempty"`
	PurchaseOrder *RecordRef  `json:"purchase_order,omitempty"`
	Reservations  []RecordRef `json:"reservations,omitempty"`
	Shipment      *RecordRef  `json:"shipment,omitempty"`
	Invoice       *RecordRef  `json:"invoice,omitempty"`
	Payment       *RecordRef  `json:"payment,omitempty"`
}

// VendorSelection is the vendor chosen for sourcing or procurement.
type VendorSelection struct {
	VendorID     string          `json:"vendor_id"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	Currency     string          `json:"currency"`
	LeadTimeDays int             `json:"lead_time_days"`
}

// Lot is one received batch of procured goods and its inspection result.
type Lot struct {
	Reference        string       `json:"reference"`
	ReceiptID        kernel.UUID  `json:"receipt_id"`
	Quantity         int          `json:"quantity"`
	Verdict          string       `json:"verdict,omitempty"`
	InspectionID     *kernel.UUID `json:"inspection_id,omitempty"`
	NonconformanceID *kernel.UUID `json:"nonconformance_id,omitempty"`
	Posted           bool         `json:"posted"`
	Flagged          bool         `json:"flagged"`
}

// Totals are the monetary figures of a run, in the run currency.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Invoiced decimal.Decimal `json:"invoiced"`
	Paid     decimal.Decimal `json:"paid"`
}

// LedgerEntry is one line of the error or warning ledger.
type LedgerEntry struct {
	Phase   Phase     `json:"phase"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// RunContext is the working set of one run. It is a plain value that
// serialises to JSON, so a paused run can be stored by the caller and passed
// back to Run to resume it.
type RunContext struct {
	RunID       string           `json:"run_id"`
	CustomerRef string           `json:"customer_ref"`
	Reference   string           `json:"reference"`
	ProductID   string           `json:"product_id"`
	Quantity    int              `json:"quantity"`
	Currency    string           `json:"currency"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`

	RFQHeaderID   *kernel.UUID `json:"rfq_header_id,omitempty"`
	RFQItemID     *kernel.UUID `json:"rfq_item_id,omitempty"`
	OrderHeaderID *kernel.UUID `json:"order_header_id,omitempty"`
	OrderItemID   *kernel.UUID `json:"order_item_id,omitempty"`

	Records        Records          `json:"records"`
	SourcingVendor *VendorSelection `json:"sourcing_vendor,omitempty"`
	PurchaseVendor *VendorSelection `json:"purchase_vendor,omitempty"`
	Lots           []Lot            `json:"lots,omitempty"`

	Reserved   int `json:"reserved"`
	Shortfall  int `json:"shortfall"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Dispatched int `json:"dispatched"`

	Totals          Totals        `json:"totals"`
	CompletedPhases []Phase       `json:"completed_phases,omitempty"`
	Errors          []LedgerEntry `json:"errors,omitempty"`
	Warnings        []LedgerEntry `json:"warnings,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
}

func (c RunContext) Validate() error {
	var productErr, qtyErr, customerErr, currencyErr error
	if strings.TrimSpace(c.ProductID) == "" {
		productErr = errs.NewValueIsRequiredError("product id")
	}
	if c.Quantity <= 0 {
		qtyErr = errs.NewValueIsOutOfRangeError("quantity", c.Quantity, 1, "unbounded")
	}
	if strings.TrimSpace(c.CustomerRef) == "" {
		customerErr = errs.NewValueIsRequiredError("customer reference")
	}
	if strings.TrimSpace(c.Currency) == "" {
		currencyErr = errs.NewValueIsRequiredError("currency")
	}
	return errors.Join(productErr, qtyErr, customerErr, currencyErr)
}

// Clone returns a copy that shares no slices with c. Pointer fields are
// replaced, never written through, so they are shared.
func (c RunContext) Clone() RunContext {
	out := c
	out.Records.Reservations = slices.Clone(c.Records.Reservations)
	out.Lots = slices.Clone(c.Lots)
	out.CompletedPhases = slices.Clone(c.CompletedPhases)
	out.Errors = slices.Clone(c.Errors)
	out.Warnings = slices.Clone(c.Warnings)
	return out
}

// Completed reports whether phase is already recorded as done.
func (c RunContext) Completed(phase Phase) bool {
	return slices.Contains(c.CompletedPhases, phase)
}

// LastCompletedPhase returns the most recently completed phase, or "".
func (c RunContext) LastCompletedPhase() Phase {
	if len(c.CompletedPhases) == 0 {
		return ""
	}
	return c.CompletedPhases[len(c.CompletedPhases)-1]
}

func (c *RunContext) warn(phase Phase, code, message string, at time.Time) {
	c.Warnings = append(c.Warnings, LedgerEntry{Phase: phase, Code: code, Message: message, At: at})
}

func (c *RunContext) fail(phase Phase, code, message string, at time.Time) {
	c.Errors = append(c.Errors, LedgerEntry{Phase: phase, Code: code, Message: message, At: at})
}

func (c *RunContext) complete(phase Phase) {
	if !c.Completed(phase) {
		c.CompletedPhases = append(c.CompletedPhases, phase)
	}
}

// postedQuantity is the received quantity that passed inspection and was
// booked into stock.
func (c RunContext) postedQuantity() int {
	total := 0
	for _, l := range c.Lots {
		if l.Posted {
			total += l.Quantity
		}
	}
	return total
}

func (c RunContext) lotsWith(verdict string) []Lot {
	var out []Lot
	for _, l := range c.Lots {
		if l.Verdict == verdict {
			out = append(out, l)
		}
	}
	return out
}

func lotReferences(lots []Lot) string {
	refs := make([]string, 0, len(lots))
	for _, l := range lots {
		refs = append(refs, l.Reference)
	}
	return strings.Join(refs, ", ")
}
