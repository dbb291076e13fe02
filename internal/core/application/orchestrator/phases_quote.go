package orchestrator

import (
	"context"
	"fmt"

	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

func (o *Orchestrator) intake(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	if rc.RFQItemID == nil {
		cmd, err := commands.NewSubmitDocumentCommand(
			item.KindRFQItem, rc.Reference, rc.CustomerRef, rc.StartedAt,
			[]commands.DocumentLine{{ProductID: rc.ProductID, Quantity: rc.Quantity}},
			opts.Initiator,
		)
		if err != nil {
			return rc, outcome{}, err
		}
		doc, err := o.Documents.Handle(ctx, cmd)
		if err != nil {
			return rc, outcome{}, err
		}
		headerID, itemID := doc.HeaderID, doc.ItemIDs[0]
		rc.RFQHeaderID, rc.RFQItemID = &headerID, &itemID
	}

	if err := o.walk(ctx, &rc, PhaseIntake, *rc.RFQItemID, opts.Initiator,
		item.StateDraft, item.StateRFQSubmitted,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("RFQ %s submitted", rc.Reference), nil
}

func (o *Orchestrator) qualification(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	rfq, err := o.loadItem(ctx, *rc.RFQItemID)
	if err != nil {
		return rc, outcome{}, err
	}
	if reached(rfq, item.StateSourcing) {
		return rc, done("RFQ %s already qualified, now %s", rc.Reference, rfq.State()), nil
	}
	if !opts.AutoApproveQualification {
		return rc, paused("RFQ %s awaits technical and compliance review (%s)", rc.Reference, rfq.State()), nil
	}

	next := item.StatePricing
	if opts.ExternalSourcing {
		next = item.StateSourcing
	}
	if err = o.walk(ctx, &rc, PhaseQualification, rfq.ID(), opts.Approver,
		item.StateRFQSubmitted, item.StateTechReview, item.StateComplianceReview, next,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("RFQ %s passed technical and compliance review, routed to %s", rc.Reference, next), nil
}

func (o *Orchestrator) sourcing(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	rfq, err := o.loadItem(ctx, *rc.RFQItemID)
	if err != nil {
		return rc, outcome{}, err
	}
	if rfq.State() != item.StateSourcing {
		if opts.ExternalSourcing && rc.SourcingVendor == nil {
			rc.warn(PhaseSourcing, string(errs.KindPreconditionFailed),
				fmt.Sprintf("RFQ %s left sourcing as %s before a vendor was selected", rc.Reference, rfq.State()), o.Clock())
		}
		return rc, skipped("pricing from internal cost"), nil
	}

	if rc.Records.VendorQuote == nil {
		if rc.SourcingVendor == nil {
			if rc.SourcingVendor, err = o.selectVendor(ctx, rc.ProductID, rc.Quantity); err != nil {
				return rc, outcome{}, err
			}
		}
		v := rc.SourcingVendor
		rec, err := o.createRecord(ctx, record.KindVendorQuote, rfq.ID(), record.Params{
			Quantity: rc.Quantity,
			Amount:   v.UnitCost.Mul(decimal.NewFromInt(int64(rc.Quantity))),
			Currency: v.Currency,
			Attributes: map[string]string{
				record.AttrVendorID: v.VendorID,
			},
		})
		if err != nil {
			return rc, outcome{}, err
		}
		rc.Records.VendorQuote = refOf(rec)
	}

	if err = o.walk(ctx, &rc, PhaseSourcing, rfq.ID(), kernel.SystemActor,
		item.StateSourcing, item.StatePricing,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("vendor quote %s from %s", rc.Records.VendorQuote.Reference, rc.SourcingVendor.VendorID), nil
}

// quotePrice picks the unit price: the caller's price, else the vendor cost
// plus markup.
func quotePrice(rc RunContext, opts Options) (decimal.Decimal, error) {
	if rc.UnitPrice != nil {
		return *rc.UnitPrice, nil
	}
	if rc.SourcingVendor != nil {
		return rc.SourcingVendor.UnitCost.Mul(decimal.NewFromInt(1).Add(opts.PricingMarkup)).Round(2), nil
	}
	return decimal.Zero, errs.NewValueIsRequiredErrorWithCause(
		"unit price",
		fmt.Errorf("RFQ %s has no price and no vendor cost to derive one from", rc.Reference),
	)
}

func (o *Orchestrator) pricingApproval(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	rfq, err := o.loadItem(ctx, *rc.RFQItemID)
	if err != nil {
		return rc, outcome{}, err
	}
	if reached(rfq, item.StateQuoted) {
		rc.UnitPrice = rfq.UnitPrice()
		return rc, done("RFQ %s already priced and quoted", rc.Reference), nil
	}

	if rfq.State() == item.StatePricing {
		if price := rfq.UnitPrice(); price != nil {
			rc.UnitPrice = price
		} else {
			p, err := quotePrice(rc, opts)
			if err != nil {
				return rc, outcome{}, err
			}
			cmd, err := commands.NewPriceItemCommand(rfq.ID(), p, rc.Currency, kernel.SystemActor)
			if err != nil {
				return rc, outcome{}, err
			}
			if err = o.Pricer.Handle(ctx, cmd); err != nil {
				return rc, outcome{}, err
			}
			rc.UnitPrice = &p
		}
		if err = o.advance(ctx, &rc, PhasePricingApproval, rfq.Kind(), rfq.ID(),
			item.StatePricing, item.StatePriceApproval, kernel.SystemActor,
		); err != nil {
			return rc, outcome{}, err
		}
	} else if rfq.State() != item.StatePriceApproval {
		return rc, outcome{}, unexpected(rfq)
	}

	if !opts.AutoApprovePricing {
		return rc, paused("price %s %s for RFQ %s awaits approval", rc.UnitPrice.StringFixed(2), rc.Currency, rc.Reference), nil
	}
	if err = o.advance(ctx, &rc, PhasePricingApproval, rfq.Kind(), rfq.ID(),
		item.StatePriceApproval, item.StateQuoted, opts.Approver,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("price %s %s approved by %s", rc.UnitPrice.StringFixed(2), rc.Currency, opts.Approver.ID), nil
}

func (o *Orchestrator) customerQuote(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	rfq, err := o.loadItem(ctx, *rc.RFQItemID)
	if err != nil {
		return rc, outcome{}, err
	}
	if rfq.State() == item.StateRFQClosed && rfq.LinkedOrderItem() == nil {
		return rc, outcome{}, fmt.Errorf("%w: RFQ %s was closed without an order", ErrItemAbandoned, rc.Reference)
	}
	if !reached(rfq, item.StateQuoted) {
		return rc, outcome{}, unexpected(rfq)
	}
	if rc.UnitPrice == nil {
		rc.UnitPrice = rfq.UnitPrice()
	}

	if rc.Records.Quote == nil {
		value, _ := rfq.Value()
		if rc.Records.Quote, err = o.adoptRecord(ctx, record.KindQuote, rfq.ID(), record.Params{
			Quantity: rfq.Quantity(),
			Amount:   value.Amount,
			Currency: value.Currency,
		}); err != nil {
			return rc, outcome{}, err
		}
	}
	rc.Totals.Subtotal = rc.UnitPrice.Mul(decimal.NewFromInt(int64(rc.Quantity)))

	if rfq.State() == item.StateQuoted {
		if !opts.AutoAcceptQuote {
			return rc, paused("quote %s awaits customer acceptance", rc.Records.Quote.Reference), nil
		}
		if err = o.advance(ctx, &rc, PhaseCustomerQuote, rfq.Kind(), rfq.ID(),
			item.StateQuoted, item.StateWon, opts.Approver,
		); err != nil {
			return rc, outcome{}, err
		}
	}
	return rc, done("customer accepted quote %s", rc.Records.Quote.Reference), nil
}
