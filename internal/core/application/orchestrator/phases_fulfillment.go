package orchestrator

import (
	"context"
	"fmt"
	"slices"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

func (o *Orchestrator) receiptInspection(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	if rc.Shortfall == 0 {
		return rc, skipped("no goods to receive"), nil
	}
	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}

	switch state := order.State(); {
	case state == item.StateQCFailed, reached(order, item.StateQCPassed):
		return rc, done("inspection already recorded, order is %s", state), nil
	case state == item.StatePORaised, state == item.StateGoodsReceived:
		if err = o.receiveLots(ctx, &rc, opts, order.ID()); err != nil {
			return rc, outcome{}, err
		}
		if err = o.walk(ctx, &rc, PhaseReceiptInspection, order.ID(), kernel.SystemActor,
			item.StatePORaised, item.StateGoodsReceived, item.StateQCInspection,
		); err != nil {
			return rc, outcome{}, err
		}
	case state == item.StateQCInspection:
	default:
		return rc, outcome{}, unexpected(order)
	}

	out, err := o.inspect(ctx, &rc, PhaseReceiptInspection, opts, order.ID())
	return rc, out, err
}

// receiveLots records goods receipts until the shortfall is covered, in lots
// of at most opts.LotSize units. The receipt reference identifies the lot.
func (o *Orchestrator) receiveLots(ctx context.Context, rc *RunContext, opts Options, orderID kernel.UUID) error {
	received := 0
	for _, l := range rc.Lots {
		received += l.Quantity
	}
	for received < rc.Shortfall {
		qty := rc.Shortfall - received
		if opts.LotSize > 0 && qty > opts.LotSize {
			qty = opts.LotSize
		}
		rec, err := o.createRecord(ctx, record.KindGoodsReceipt, orderID, record.Params{
			Quantity: qty,
			Attributes: map[string]string{
				record.AttrSourceRecord: rc.Records.PurchaseOrder.Reference,
				record.AttrVendorID:     rc.PurchaseVendor.VendorID,
			},
		})
		if err != nil {
			return err
		}
		rc.Lots = append(rc.Lots, Lot{Reference: rec.Reference(), ReceiptID: rec.ID(), Quantity: qty})
		received += qty
	}
	return nil
}

// lotOutcome returns the recorded inspection of lot. Without a recorded
// outcome the lot passes when AutoPassQC is set and is pending otherwise.
func (o *Orchestrator) lotOutcome(ctx context.Context, lot Lot, opts Options) (ports.InspectionOutcome, bool, error) {
	result, found, err := o.Inspections.Find(ctx, lot.Reference)
	if err != nil {
		return ports.InspectionOutcome{}, false, errs.NewExternalOperationError("inspection lookup", err)
	}
	if found {
		return result, true, nil
	}
	if opts.AutoPassQC {
		return ports.InspectionOutcome{
			LotReference: lot.Reference,
			Passed:       true,
			Inspector:    kernel.SystemActor.ID,
			Notes:        "passed without inspection",
			RecordedAt:   o.Clock(),
		}, true, nil
	}
	return ports.InspectionOutcome{}, false, nil
}

// inspect folds lot outcomes into the context and moves the order out of
// QC_INSPECTION. Failed lots get a nonconformance record and are flagged once;
// they are looked up again on later calls so a re-inspection that passes is
// picked up. The order goes to QC_FAILED when no lot passed, or when any lot
// failed and dispatch is blocked on failures.
func (o *Orchestrator) inspect(
	ctx context.Context,
	rc *RunContext,
	phase Phase,
	opts Options,
	orderID kernel.UUID,
) (outcome, error) {
	var pending []Lot
	for i := range rc.Lots {
		lot := &rc.Lots[i]
		if lot.Verdict == VerdictPassed {
			continue
		}
		result, found, err := o.lotOutcome(ctx, *lot, opts)
		if err != nil {
			return outcome{}, err
		}
		if !found {
			if lot.Verdict == VerdictPending {
				pending = append(pending, *lot)
			}
			continue
		}
		if lot.Verdict == VerdictFailed && !result.Passed {
			continue
		}
		if err = o.recordVerdict(ctx, rc, orderID, lot, result); err != nil {
			return outcome{}, err
		}
	}
	if len(pending) > 0 {
		return paused("awaiting inspection of %d lot(s): %s", len(pending), lotReferences(pending)), nil
	}

	rc.Passed, rc.Failed = 0, 0
	for i := range rc.Lots {
		lot := &rc.Lots[i]
		switch lot.Verdict {
		case VerdictPassed:
			rc.Passed += lot.Quantity
		case VerdictFailed:
			rc.Failed += lot.Quantity
			if !lot.Flagged {
				rc.warn(phase, CodeLotRejected, fmt.Sprintf("lot %s failed inspection", lot.Reference), o.Clock())
				lot.Flagged = true
			}
		}
	}

	failed := rc.lotsWith(VerdictFailed)
	if rc.Passed+rc.Reserved == 0 || (len(failed) > 0 && opts.BlockDispatchOnQCFail) {
		if err := o.advance(ctx, rc, phase, item.KindOrderItem, orderID,
			item.StateQCInspection, item.StateQCFailed, kernel.SystemActor,
		); err != nil {
			return outcome{}, err
		}
		return done("%d units failed inspection (%s), dispatch blocked", rc.Failed, lotReferences(failed)), nil
	}

	if err := o.advance(ctx, rc, phase, item.KindOrderItem, orderID,
		item.StateQCInspection, item.StateQCPassed, kernel.SystemActor,
	); err != nil {
		return outcome{}, err
	}
	return done("%d units passed inspection", rc.Passed), nil
}

func (o *Orchestrator) recordVerdict(
	ctx context.Context,
	rc *RunContext,
	orderID kernel.UUID,
	lot *Lot,
	result ports.InspectionOutcome,
) error {
	status := record.StatusPassed
	if !result.Passed {
		status = record.StatusFailed
	}
	rec, err := o.createRecord(ctx, record.KindQCInspection, orderID, record.Params{
		Quantity: lot.Quantity,
		Status:   status,
		Attributes: map[string]string{
			record.AttrLotReference: lot.Reference,
			record.AttrInspector:    result.Inspector,
			record.AttrNotes:        result.Notes,
		},
	})
	if err != nil {
		return err
	}
	inspectionID := rec.ID()
	lot.InspectionID = &inspectionID

	if result.Passed {
		lot.Verdict = VerdictPassed
		return nil
	}
	lot.Verdict = VerdictFailed
	if lot.NonconformanceID != nil {
		return nil
	}
	reason := result.Notes
	if reason == "" {
		reason = "failed inspection"
	}
	ncr, err := o.createRecord(ctx, record.KindNonconformance, orderID, record.Params{
		Quantity: lot.Quantity,
		Attributes: map[string]string{
			record.AttrLotReference: lot.Reference,
			record.AttrReason:       reason,
			record.AttrSourceRecord: rec.Reference(),
			record.AttrVendorID:     rc.PurchaseVendor.VendorID,
		},
	})
	if err != nil {
		return err
	}
	ncrID := ncr.ID()
	lot.NonconformanceID = &ncrID
	return nil
}

// postPassedLots books every passed lot into stock and reserves it for the
// order. Failed lots never reach inventory. Receipt and reservation are keyed
// on the lot reference and the reservation record is looked up before it is
// written, so a lot is posted once however often this is retried.
func (o *Orchestrator) postPassedLots(ctx context.Context, rc *RunContext, orderID kernel.UUID) (int, error) {
	posted := 0
	for i := range rc.Lots {
		lot := &rc.Lots[i]
		if lot.Verdict != VerdictPassed || lot.Posted {
			continue
		}
		if _, err := o.Inventory.Receive(ctx, rc.ProductID, lot.Quantity, lot.Reference); err != nil {
			return posted, errs.NewExternalOperationError("stock receipt", err)
		}
		if err := o.Inventory.Reserve(ctx, rc.ProductID, lot.Quantity, lot.Reference); err != nil {
			return posted, errs.NewExternalOperationError("stock reservation", err)
		}
		ref, err := o.lotReservation(ctx, orderID, lot, rc.Records.SalesOrder.Reference)
		if err != nil {
			return posted, err
		}
		if !slices.ContainsFunc(rc.Records.Reservations, func(r RecordRef) bool { return r.ID == ref.ID }) {
			rc.Records.Reservations = append(rc.Records.Reservations, *ref)
		}
		lot.Posted = true
		posted += lot.Quantity
	}
	return posted, nil
}

func (o *Orchestrator) lotReservation(ctx context.Context, orderID kernel.UUID, lot *Lot, salesOrder string) (*RecordRef, error) {
	existing, err := o.listRecords(ctx, orderID, record.KindReservation)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.Attribute(record.AttrLotReference) == lot.Reference {
			return refOf(r), nil
		}
	}
	rec, err := o.createRecord(ctx, record.KindReservation, orderID, record.Params{
		Quantity: lot.Quantity,
		Attributes: map[string]string{
			record.AttrLotReference: lot.Reference,
			record.AttrSourceRecord: salesOrder,
		},
	})
	if err != nil {
		return nil, err
	}
	return refOf(rec), nil
}

func (o *Orchestrator) inventoryUpdate(ctx context.Context, rc RunContext, _ Options) (RunContext, outcome, error) {
	if rc.Shortfall == 0 {
		return rc, skipped("order served from stock"), nil
	}
	posted, err := o.postPassedLots(ctx, &rc, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}

	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}
	if order.State() == item.StateQCFailed {
		return rc, done("posted %d units, order held at %s", posted, order.State()), nil
	}
	if err = o.walk(ctx, &rc, PhaseInventoryUpdate, order.ID(), kernel.SystemActor,
		item.StateQCPassed, item.StateReadyToDispatch,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("posted %d units to stock, %d units rejected", posted, rc.Failed), nil
}

func (o *Orchestrator) blocked(rc RunContext) outcome {
	return paused("dispatch blocked until lots %s pass re-inspection", lotReferences(rc.lotsWith(VerdictFailed)))
}

func (o *Orchestrator) dispatch(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}

	switch order.State() {
	case item.StateQCFailed:
		return rc, o.blocked(rc), nil
	case item.StateQCInspection:
		out, err := o.inspect(ctx, &rc, PhaseDispatch, opts, order.ID())
		if err != nil || out.kind == outcomePaused {
			return rc, out, err
		}
		if _, err = o.postPassedLots(ctx, &rc, order.ID()); err != nil {
			return rc, outcome{}, err
		}
		if order, err = o.loadItem(ctx, order.ID()); err != nil {
			return rc, outcome{}, err
		}
		if order.State() == item.StateQCFailed {
			return rc, o.blocked(rc), nil
		}
	}

	switch from := order.State(); {
	case from == item.StateStockReserved, from == item.StateQCPassed:
		if err = o.advance(ctx, &rc, PhaseDispatch, order.Kind(), order.ID(),
			from, item.StateReadyToDispatch, kernel.SystemActor,
		); err != nil {
			return rc, outcome{}, err
		}
	case !reached(order, item.StateReadyToDispatch):
		return rc, outcome{}, unexpected(order)
	}

	if rc.Records.Shipment == nil {
		shipments, err := o.listRecords(ctx, order.ID(), record.KindShipment)
		if err != nil {
			return rc, outcome{}, err
		}
		if len(shipments) > 0 {
			rc.Records.Shipment = refOf(shipments[0])
			rc.Dispatched = shipments[0].Quantity()
		} else {
			qty := min(rc.Reserved+rc.postedQuantity(), rc.Quantity)
			if qty == 0 {
				return rc, outcome{}, fmt.Errorf("%w: nothing reserved to dispatch for order item %s", ErrUnexpectedState, order.ID())
			}
			if _, err = o.Inventory.Issue(ctx, rc.ProductID, qty, rc.Records.SalesOrder.Reference); err != nil {
				return rc, outcome{}, errs.NewExternalOperationError("stock issue", err)
			}
			rec, err := o.createRecord(ctx, record.KindShipment, order.ID(), record.Params{
				Quantity: qty,
				Attributes: map[string]string{
					record.AttrSourceRecord: rc.Records.SalesOrder.Reference,
				},
			})
			if err != nil {
				return rc, outcome{}, err
			}
			rc.Records.Shipment = refOf(rec)
			rc.Dispatched = qty
			if qty < rc.Quantity {
				rc.warn(PhaseDispatch, CodeShortShipment, fmt.Sprintf("shipped %d of %d units", qty, rc.Quantity), o.Clock())
			}
		}
	}

	if err = o.walk(ctx, &rc, PhaseDispatch, order.ID(), kernel.SystemActor,
		item.StateReadyToDispatch, item.StateDispatched, item.StateDelivered,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("shipment %s delivered %d of %d units", rc.Records.Shipment.Reference, rc.Dispatched, rc.Quantity), nil
}

func (o *Orchestrator) invoicing(ctx context.Context, rc RunContext, _ Options) (RunContext, outcome, error) {
	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}

	if rc.Records.Invoice == nil {
		invoices, err := o.listRecords(ctx, order.ID(), record.KindInvoice)
		if err != nil {
			return rc, outcome{}, err
		}
		inv := firstOf(invoices)
		if inv == nil {
			price := rc.UnitPrice
			if price == nil {
				price = order.UnitPrice()
			}
			if inv, err = o.createRecord(ctx, record.KindInvoice, order.ID(), record.Params{
				Quantity: rc.Dispatched,
				Amount:   price.Mul(decimal.NewFromInt(int64(rc.Dispatched))),
				Currency: order.Currency(),
				Attributes: map[string]string{
					record.AttrSourceRecord: rc.Records.Shipment.Reference,
				},
			}); err != nil {
				return rc, outcome{}, err
			}
		}
		rc.Records.Invoice = refOf(inv)
		rc.Totals.Invoiced = inv.Amount()
	}

	if err = o.walk(ctx, &rc, PhaseInvoicing, order.ID(), kernel.SystemActor,
		item.StateDelivered, item.StateInvoiced,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("invoice %s raised for %s %s", rc.Records.Invoice.Reference, rc.Totals.Invoiced.StringFixed(2), rc.Currency), nil
}

func (o *Orchestrator) settlement(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}

	if reached(order, item.StatePaid) {
		payments, err := o.listRecords(ctx, order.ID(), record.KindPayment)
		if err != nil {
			return rc, outcome{}, err
		}
		rc.Totals.Paid = decimal.Zero
		for _, p := range payments {
			rc.Totals.Paid = rc.Totals.Paid.Add(p.Amount())
		}
		if p := firstOf(payments); p != nil && rc.Records.Payment == nil {
			rc.Records.Payment = refOf(p)
		}
		return rc, done("invoice %s settled outside the run", rc.Records.Invoice.Reference), nil
	}
	if order.State() != item.StateInvoiced {
		return rc, outcome{}, unexpected(order)
	}
	if !opts.AutoSettle {
		return rc, paused("invoice %s awaits payment", rc.Records.Invoice.Reference), nil
	}

	if rc.Records.Payment == nil {
		rec, err := o.createRecord(ctx, record.KindPayment, order.ID(), record.Params{
			Quantity: rc.Dispatched,
			Amount:   rc.Totals.Invoiced,
			Currency: order.Currency(),
			Attributes: map[string]string{
				record.AttrSourceRecord: rc.Records.Invoice.Reference,
			},
		})
		if err != nil {
			return rc, outcome{}, err
		}
		rc.Records.Payment = refOf(rec)
		rc.Totals.Paid = rec.Amount()
	}
	if err = o.advance(ctx, &rc, PhaseSettlement, order.Kind(), order.ID(),
		item.StateInvoiced, item.StatePaid, opts.Approver,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("payment %s of %s %s recorded", rc.Records.Payment.Reference, rc.Totals.Paid.StringFixed(2), rc.Currency), nil
}

func (o *Orchestrator) completion(ctx context.Context, rc RunContext, _ Options) (RunContext, outcome, error) {
	if err := o.walk(ctx, &rc, PhaseCompletion, *rc.OrderItemID, kernel.SystemActor,
		item.StatePaid, item.StateClosed,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("order %s closed", rc.Records.SalesOrder.Reference), nil
}

func firstOf(recs []*record.Record) *record.Record {
	if len(recs) == 0 {
		return nil
	}
	return recs[0]
}
