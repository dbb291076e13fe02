// Package itemrepo persists item aggregates. Updates carry the optimistic
// version check and refuse rows in a terminal state.
package itemrepo

import (
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is the items table row.
type ItemDTO struct {
	ID                uuid.UUID           `gorm:"type:uuid;primaryKey"`
	Kind              string              `gorm:"type:varchar(32);not null;index:idx_items_open,priority:1"`
	HeaderID          uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProductID         string              `gorm:"type:varchar(128);not null"`
	Quantity          int                 `gorm:"not null"`
	Currency          string              `gorm:"type:varchar(3)"`
	UnitPrice         decimal.NullDecimal `gorm:"type:numeric(18,4)"`
	State             string              `gorm:"type:varchar(32);not null;index:idx_items_open,priority:2"`
	StateEnteredAt    time.Time           `gorm:"not null"`
	OwnerID           string              `gorm:"type:varchar(128);not null"`
	SLADueAt          *time.Time          `gorm:"column:sla_due_at"`
	SLABreached       bool                `gorm:"column:sla_breached;not null;default:false"`
	SLAWarningIssued  bool                `gorm:"column:sla_warning_issued;not null;default:false"`
	LinkedOrderItemID *uuid.UUID          `gorm:"type:uuid"`
	CreatedBy         string              `gorm:"type:varchar(128);not null"`
	CreatedAt         time.Time           `gorm:"not null;autoCreateTime:false"`
	UpdatedBy         string              `gorm:"type:varchar(128);not null"`
	UpdatedAt         time.Time           `gorm:"not null;autoUpdateTime:false"`
	DeletedBy         string              `gorm:"type:varchar(128)"`
	DeletedAt         *time.Time
	Version           int64 `gorm:"not null"`
}

func (ItemDTO) TableName() string {
	return "items"
}

func fromDomain(it *item.Item) ItemDTO {
	dto := ItemDTO{
		ID:               it.ID().Bytes(),
		Kind:             string(it.Kind()),
		HeaderID:         it.HeaderID().Bytes(),
		ProductID:        it.ProductID(),
		Quantity:         it.Quantity(),
		Currency:         it.Currency(),
		State:            string(it.State()),
		StateEnteredAt:   it.StateEnteredAt(),
		OwnerID:          it.OwnerID(),
		SLADueAt:         it.SLA().DueAt,
		SLABreached:      it.SLA().Breached,
		SLAWarningIssued: it.SLA().WarningIssued,
		CreatedBy:        it.Audit().CreatedBy,
		CreatedAt:        it.Audit().CreatedAt,
		UpdatedBy:        it.Audit().UpdatedBy,
		UpdatedAt:        it.Audit().UpdatedAt,
		DeletedBy:        it.Audit().DeletedBy,
		DeletedAt:        it.Audit().DeletedAt,
		Version:          it.Version(),
	}
	if p := it.UnitPrice(); p != nil {
		dto.UnitPrice = decimal.NullDecimal{Decimal: *p, Valid: true}
	}
	if l := it.LinkedOrderItem(); l != nil {
		raw := l.Bytes()
		dto.LinkedOrderItemID = &raw
	}
	return dto
}

func toDomain(dto ItemDTO) (*item.Item, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	headerID, err := kernel.UUIDFromBytes(dto.HeaderID[:])
	if err != nil {
		return nil, err
	}

	p := item.RestoreParams{
		ID:             id,
		Kind:           item.Kind(dto.Kind),
		HeaderID:       headerID,
		ProductID:      dto.ProductID,
		Quantity:       dto.Quantity,
		Currency:       dto.Currency,
		State:          item.State(dto.State),
		StateEnteredAt: dto.StateEnteredAt,
		OwnerID:        dto.OwnerID,
		SLA: item.SLA{
			DueAt:         dto.SLADueAt,
			Breached:      dto.SLABreached,
			WarningIssued: dto.SLAWarningIssued,
		},
		Audit: item.Audit{
			CreatedBy: dto.CreatedBy,
			CreatedAt: dto.CreatedAt,
			UpdatedBy: dto.UpdatedBy,
			UpdatedAt: dto.UpdatedAt,
			DeletedBy: dto.DeletedBy,
			DeletedAt: dto.DeletedAt,
		},
		Version: dto.Version,
	}
	if dto.UnitPrice.Valid {
		price := dto.UnitPrice.Decimal
		p.UnitPrice = &price
	}
	if dto.LinkedOrderItemID != nil {
		linked, linkErr := kernel.UUIDFromBytes((*dto.LinkedOrderItemID)[:])
		if linkErr != nil {
			return nil, linkErr
		}
		p.LinkedOrderItemID = &linked
	}

	return item.RestoreItem(p)
}
