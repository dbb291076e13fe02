package commands

import (
	"encoding/json"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/record"
)

// Audit table names.
const (
	AuditTableItems   = "items"
	AuditTableHeaders = "headers"
	AuditTableRecords = "records"
)

type itemSnapshot struct {
	State             item.State `json:"state"`
	StateEnteredAt    time.Time  `json:"state_entered_at"`
	OwnerID           string     `json:"owner_id"`
	UnitPrice         string     `json:"unit_price,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	DueAt             *time.Time `json:"due_at,omitempty"`
	SLABreached       bool       `json:"sla_breached"`
	SLAWarningIssued  bool       `json:"sla_warning_issued"`
	LinkedOrderItemID string     `json:"linked_order_item_id,omitempty"`
	Deleted           bool       `json:"deleted"`
	Version           int64      `json:"version"`
}

func snapshotItem(it *item.Item) json.RawMessage {
	s := itemSnapshot{
		State:            it.State(),
		StateEnteredAt:   it.StateEnteredAt(),
		OwnerID:          it.OwnerID(),
		Currency:         it.Currency(),
		DueAt:            it.SLA().DueAt,
		SLABreached:      it.SLA().Breached,
		SLAWarningIssued: it.SLA().WarningIssued,
		Deleted:          it.IsDeleted(),
		Version:          it.Version(),
	}
	if p := it.UnitPrice(); p != nil {
		s.UnitPrice = p.String()
	}
	if l := it.LinkedOrderItem(); l != nil {
		s.LinkedOrderItemID = l.String()
	}
	data, _ := json.Marshal(s)
	return data
}

type recordSnapshot struct {
	Kind      record.Kind `json:"kind"`
	Reference string      `json:"reference"`
	ItemID    string      `json:"item_id"`
	Quantity  int         `json:"quantity"`
	Amount    string      `json:"amount"`
	Currency  string      `json:"currency,omitempty"`
	Status    string      `json:"status"`
}

func snapshotRecord(r *record.Record) json.RawMessage {
	data, _ := json.Marshal(recordSnapshot{
		Kind:      r.Kind(),
		Reference: r.Reference(),
		ItemID:    r.ItemID().String(),
		Quantity:  r.Quantity(),
		Amount:    r.Amount().String(),
		Currency:  r.Currency(),
		Status:    r.Status(),
	})
	return data
}
