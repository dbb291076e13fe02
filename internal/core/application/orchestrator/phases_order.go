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

func (o *Orchestrator) orderCreation(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	rfq, err := o.loadItem(ctx, *rc.RFQItemID)
	if err != nil {
		return rc, outcome{}, err
	}

	if rc.OrderItemID == nil {
		if linked := rfq.LinkedOrderItem(); linked != nil {
			orderItemID := *linked
			rc.OrderItemID = &orderItemID
		} else {
			cmd, err := commands.NewSubmitDocumentCommand(
				item.KindOrderItem, rc.Reference+"-SO", rc.CustomerRef, o.Clock(),
				[]commands.DocumentLine{{
					ProductID: rc.ProductID,
					Quantity:  rc.Quantity,
					UnitPrice: rc.UnitPrice,
					Currency:  rc.Currency,
				}},
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
			rc.OrderHeaderID, rc.OrderItemID = &headerID, &itemID
		}
	}

	if rfq.LinkedOrderItem() == nil {
		cmd, err := commands.NewLinkOrderItemCommand(rfq.ID(), *rc.OrderItemID, opts.Initiator)
		if err != nil {
			return rc, outcome{}, err
		}
		if err = o.Linker.Handle(ctx, cmd); err != nil {
			return rc, outcome{}, err
		}
	}
	if err = o.walk(ctx, &rc, PhaseOrderCreation, rfq.ID(), kernel.SystemActor,
		item.StateWon, item.StateRFQClosed,
	); err != nil {
		return rc, outcome{}, err
	}

	if err = o.walk(ctx, &rc, PhaseOrderCreation, *rc.OrderItemID, kernel.SystemActor,
		item.StateOrderCreated, item.StateConfirmed,
	); err != nil {
		return rc, outcome{}, err
	}

	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}
	if rc.OrderHeaderID == nil {
		headerID := order.HeaderID()
		rc.OrderHeaderID = &headerID
	}
	if rc.Records.SalesOrder == nil {
		value, _ := order.Value()
		if rc.Records.SalesOrder, err = o.adoptRecord(ctx, record.KindSalesOrder, order.ID(), record.Params{
			Quantity: order.Quantity(),
			Amount:   value.Amount,
			Currency: value.Currency,
			Attributes: map[string]string{
				record.AttrRFQItemID: rfq.ID().String(),
			},
		}); err != nil {
			return rc, outcome{}, err
		}
	}
	return rc, done("sales order %s confirmed for %s", rc.Records.SalesOrder.Reference, rc.CustomerRef), nil
}

// reservedQuantity totals the order's reservations taken from stock. Lots
// posted after inspection are counted separately.
func (o *Orchestrator) reservedQuantity(ctx context.Context, orderID kernel.UUID) (int, []RecordRef, error) {
	recs, err := o.listRecords(ctx, orderID, record.KindReservation)
	if err != nil {
		return 0, nil, err
	}
	total := 0
	refs := make([]RecordRef, 0, len(recs))
	for _, r := range recs {
		if r.Attribute(record.AttrLotReference) == "" {
			total += r.Quantity()
		}
		refs = append(refs, *refOf(r))
	}
	return total, refs, nil
}

// reserveFromStock earmarks on-hand stock for the sales order. The reservation
// is keyed on the sales order reference, so a retry after a failed record write
// picks up the earlier reservation instead of taking more stock.
func (o *Orchestrator) reserveFromStock(ctx context.Context, rc *RunContext, opts Options) (int, error) {
	ref := rc.Records.SalesOrder.Reference
	prior, err := o.Inventory.Reserved(ctx, rc.ProductID, ref)
	if err != nil {
		return 0, errs.NewExternalOperationError("stock lookup", err)
	}
	if prior > 0 {
		return prior, nil
	}
	available, err := o.Inventory.Available(ctx, rc.ProductID)
	if err != nil {
		return 0, errs.NewExternalOperationError("stock lookup", err)
	}
	take := 0
	switch {
	case available >= rc.Quantity:
		take = rc.Quantity
	case available > 0 && opts.AllowPartialFulfillment:
		take = available
	case available > 0:
		rc.warn(PhaseStockResolution, CodePartialStock,
			fmt.Sprintf("%d of %d units in stock, procuring all", available, rc.Quantity), o.Clock())
	}
	if take > 0 {
		if err = o.Inventory.Reserve(ctx, rc.ProductID, take, ref); err != nil {
			return 0, errs.NewExternalOperationError("stock reservation", err)
		}
	}
	return take, nil
}

func (o *Orchestrator) stockResolution(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}
	reserved, refs, err := o.reservedQuantity(ctx, order.ID())
	if err != nil {
		return rc, outcome{}, err
	}

	if order.State() == item.StateConfirmed {
		if reserved == 0 {
			take, err := o.reserveFromStock(ctx, &rc, opts)
			if err != nil {
				return rc, outcome{}, err
			}
			if take > 0 {
				rec, err := o.createRecord(ctx, record.KindReservation, order.ID(), record.Params{
					Quantity: take,
					Attributes: map[string]string{
						record.AttrSourceRecord: rc.Records.SalesOrder.Reference,
					},
				})
				if err != nil {
					return rc, outcome{}, err
				}
				reserved += take
				refs = append(refs, *refOf(rec))
			}
		}
	} else if !reached(order, item.StateStockReserved) {
		return rc, outcome{}, unexpected(order)
	}

	rc.Reserved = reserved
	rc.Records.Reservations = refs
	rc.Shortfall = rc.Quantity - reserved
	if order.State() == item.StateStockReserved {
		rc.Shortfall = 0
	}

	if rc.Shortfall == 0 {
		if err = o.walk(ctx, &rc, PhaseStockResolution, order.ID(), kernel.SystemActor,
			item.StateConfirmed, item.StateStockReserved,
		); err != nil {
			return rc, outcome{}, err
		}
		return rc, done("all %d units of %s reserved from stock", rc.Quantity, rc.ProductID), nil
	}

	if err = o.walk(ctx, &rc, PhaseStockResolution, order.ID(), kernel.SystemActor,
		item.StateConfirmed, item.StateProcurement,
	); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("%d of %d units reserved from stock, procuring %d", rc.Reserved, rc.Quantity, rc.Shortfall), nil
}

func (o *Orchestrator) procurement(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error) {
	if rc.Shortfall == 0 {
		return rc, skipped("stock covers the order"), nil
	}
	order, err := o.loadItem(ctx, *rc.OrderItemID)
	if err != nil {
		return rc, outcome{}, err
	}

	if rc.Records.Requisition == nil {
		rec, err := o.createRecord(ctx, record.KindPurchaseRequisition, order.ID(), record.Params{
			Quantity: rc.Shortfall,
			Attributes: map[string]string{
				record.AttrReason:       fmt.Sprintf("stock shortfall of %d", rc.Shortfall),
				record.AttrSourceRecord: rc.Records.SalesOrder.Reference,
			},
		})
		if err != nil {
			return rc, outcome{}, err
		}
		rc.Records.Requisition = refOf(rec)
	}

	if rc.Records.PurchaseOrder == nil {
		if rc.PurchaseVendor == nil {
			if rc.PurchaseVendor, err = o.selectVendor(ctx, rc.ProductID, rc.Shortfall); err != nil {
				return rc, outcome{}, err
			}
		}
		v := rc.PurchaseVendor
		rec, err := o.createRecord(ctx, record.KindPurchaseOrder, order.ID(), record.Params{
			Quantity: rc.Shortfall,
			Amount:   v.UnitCost.Mul(decimal.NewFromInt(int64(rc.Shortfall))),
			Currency: v.Currency,
			Status:   record.StatusDraft,
			Attributes: map[string]string{
				record.AttrVendorID:     v.VendorID,
				record.AttrSourceRecord: rc.Records.Requisition.Reference,
			},
		})
		if err != nil {
			return rc, outcome{}, err
		}
		rc.Records.PurchaseOrder = refOf(rec)
	}

	if order.State() == item.StateProcurement {
		if !opts.AutoApprovePO {
			return rc, paused("purchase order %s awaits approval", rc.Records.PurchaseOrder.Reference), nil
		}
		if err = o.advance(ctx, &rc, PhaseProcurement, order.Kind(), order.ID(),
			item.StateProcurement, item.StatePORaised, opts.Approver,
		); err != nil {
			return rc, outcome{}, err
		}
	} else if !reached(order, item.StatePORaised) {
		return rc, outcome{}, unexpected(order)
	}

	cmd, err := commands.NewIssuePurchaseOrderCommand(rc.Records.PurchaseOrder.ID, opts.Approver)
	if err != nil {
		return rc, outcome{}, err
	}
	if _, err = o.POIssuer.Handle(ctx, cmd); err != nil {
		return rc, outcome{}, err
	}
	return rc, done("purchase order %s issued", rc.Records.PurchaseOrder.Reference), nil
}
