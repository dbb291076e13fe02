// Package recordrepo persists the business records derived from items:
// quotes, purchase orders, goods receipts, inspections, invoices and so on.
package recordrepo

import (
	"time"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RecordDTO struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Seq        int64             `gorm:"autoIncrement;uniqueIndex"`
	Kind       string            `gorm:"type:varchar(32);not null;index:idx_records_item,priority:2"`
	ItemID     uuid.UUID         `gorm:"type:uuid;not null;index:idx_records_item,priority:1"`
	HeaderID   *uuid.UUID        `gorm:"type:uuid"`
	Reference  string            `gorm:"type:varchar(64);not null;uniqueIndex"`
	Quantity   int               `gorm:"not null"`
	Amount     decimal.Decimal   `gorm:"type:numeric(18,4);not null"`
	Currency   string            `gorm:"type:varchar(3)"`
	Status     string            `gorm:"type:varchar(16);not null"`
	Attributes map[string]string `gorm:"serializer:json;type:jsonb"`
	CreatedBy  string            `gorm:"type:varchar(128);not null"`
	CreatedAt  time.Time         `gorm:"not null;autoCreateTime:false"`
}

func (RecordDTO) TableName() string {
	return "records"
}

func fromDomain(r *record.Record) RecordDTO {
	dto := RecordDTO{
		ID:         r.ID().Bytes(),
		Kind:       string(r.Kind()),
		ItemID:     r.ItemID().Bytes(),
		Reference:  r.Reference(),
		Quantity:   r.Quantity(),
		Amount:     r.Amount(),
		Currency:   r.Currency(),
		Status:     r.Status(),
		Attributes: r.Attributes(),
		CreatedBy:  r.CreatedBy(),
		CreatedAt:  r.CreatedAt(),
	}
	if r.HeaderID().Validate() == nil {
		raw := r.HeaderID().Bytes()
		dto.HeaderID = &raw
	}
	return dto
}

func toDomain(dto RecordDTO) (*record.Record, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	itemID, err := kernel.UUIDFromBytes(dto.ItemID[:])
	if err != nil {
		return nil, err
	}

	p := record.Params{
		Quantity:   dto.Quantity,
		Amount:     dto.Amount,
		Currency:   dto.Currency,
		Status:     dto.Status,
		Attributes: dto.Attributes,
	}
	if dto.HeaderID != nil {
		if p.HeaderID, err = kernel.UUIDFromBytes((*dto.HeaderID)[:]); err != nil {
			return nil, err
		}
	}
	return record.RestoreRecord(id, record.Kind(dto.Kind), itemID, dto.Reference, p, dto.CreatedBy, dto.CreatedAt)
}
