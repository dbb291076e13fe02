package commands

import (
	"errors"
	"fmt"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"
	"tradeflow/internal/pkg/guard"

	"github.com/shopspring/decimal"
)

var ErrSubmitDocumentCommandIsNotConstructed = errors.New(
	"SubmitDocumentCommand must be created via NewSubmitDocumentCommand constructor",
)

// DocumentLine is one line of a submitted RFQ or sales order.
type DocumentLine struct {
	ProductID string           `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Currency  string           `json:"currency,omitempty"`
}

// SubmitDocumentCommand represents a new RFQ or sales order document.
// Each line becomes an item in the initial state of kind.
//
// Example:
//
//	cmd, err := NewSubmitDocumentCommand(
//	    item.KindRFQItem, "RFQ-2025-0042", "CUST-ACME", time.Time{},
//	    []DocumentLine{{ProductID: "VALVE-DN50", Quantity: 40}},
//	    actor,
//	)
//	if err != nil {
//	    return err
//	}
//	doc, err := handler.Handle(ctx, cmd)
type SubmitDocumentCommand struct { //nolint:recvcheck //using for validation
	headerID    kernel.UUID
	kind        item.Kind
	reference   string
	customerRef string
	documentAt  time.Time
	lines       []DocumentLine
	actor       kernel.Actor

	guard guard.ConstructorGuard
}

// NewSubmitDocumentCommand validates the document shape. A zero documentAt
// defaults to the submission time.
func NewSubmitDocumentCommand(
	kind item.Kind,
	reference, customerRef string,
	documentAt time.Time,
	lines []DocumentLine,
	actor kernel.Actor,
) (SubmitDocumentCommand, error) {
	cmd := SubmitDocumentCommand{
		headerID:    kernel.NewUUID(),
		reference:   reference,
		customerRef: customerRef,
		documentAt:  documentAt,
		actor:       actor,
		guard:       guard.NewConstructorGuard(),
	}

	if err := errors.Join(
		cmd.setKind(kind),
		cmd.setLines(lines),
		actor.Validate(),
	); err != nil {
		return SubmitDocumentCommand{}, err
	}

	return cmd, nil
}

// Validate ensures the command was created through the constructor.
func (c SubmitDocumentCommand) Validate() error {
	return c.guard.Validate(ErrSubmitDocumentCommandIsNotConstructed)
}

func (c SubmitDocumentCommand) HeaderID() kernel.UUID { return c.headerID }
func (c SubmitDocumentCommand) Kind() item.Kind       { return c.kind }
func (c SubmitDocumentCommand) Reference() string     { return c.reference }
func (c SubmitDocumentCommand) CustomerRef() string   { return c.customerRef }
func (c SubmitDocumentCommand) DocumentAt() time.Time { return c.documentAt }
func (c SubmitDocumentCommand) Actor() kernel.Actor   { return c.actor }

// Lines returns a copy of the document lines.
func (c SubmitDocumentCommand) Lines() []DocumentLine {
	out := make([]DocumentLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *SubmitDocumentCommand) setKind(kind item.Kind) error {
	if err := kind.Validate(); err != nil {
		return err
	}
	c.kind = kind
	return nil
}

func (c *SubmitDocumentCommand) setLines(lines []DocumentLine) error {
	if len(lines) == 0 {
		return errs.NewValueIsRequiredError("lines")
	}
	var lineErrs []error
	for n, l := range lines {
		if l.ProductID == "" {
			lineErrs = append(lineErrs, errs.NewValueIsRequiredErrorWithCause("product id", fmt.Errorf("line %d", n+1)))
		}
		if l.Quantity <= 0 {
			lineErrs = append(lineErrs, errs.NewValueIsInvalidErrorWithCause(
				"quantity", fmt.Errorf("line %d: %d is not greater than 0", n+1, l.Quantity),
			))
		}
		if l.UnitPrice != nil && l.Currency == "" {
			lineErrs = append(lineErrs, errs.NewValueIsRequiredErrorWithCause("currency", fmt.Errorf("line %d is priced", n+1)))
		}
	}
	if err := errors.Join(lineErrs...); err != nil {
		return err
	}
	c.lines = append([]DocumentLine(nil), lines...)
	return nil
}
