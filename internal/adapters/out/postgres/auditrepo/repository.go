// Package auditrepo appends to and reads the audit_log table. Rows are never
// updated or deleted.
package auditrepo

import (
	"context"
	"encoding/json"
	"time"

	"tradeflow/internal/core/ports"

	"gorm.io/gorm"
)

type AuditDTO struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Source    string          `gorm:"column:table_name;type:varchar(32);not null;index:idx_audit_record,priority:1"`
	RecordID  string          `gorm:"type:varchar(64);not null;index:idx_audit_record,priority:2"`
	Action    string          `gorm:"type:varchar(16);not null"`
	OldData   json.RawMessage `gorm:"type:jsonb"`
	NewData   json.RawMessage `gorm:"type:jsonb"`
	ActorID   string          `gorm:"type:varchar(128);not null"`
	Timestamp time.Time       `gorm:"not null"`
	Reason    string          `gorm:"type:text"`
}

func (AuditDTO) TableName() string {
	return "audit_log"
}

type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Append(ctx context.Context, entry ports.AuditEntry) error {
	dto := AuditDTO{
		Source:    entry.Table,
		RecordID:  entry.RecordID,
		Action:    entry.Action,
		OldData:   entry.OldData,
		NewData:   entry.NewData,
		ActorID:   entry.ActorID,
		Timestamp: entry.Timestamp,
		Reason:    entry.Reason,
	}
	return r.db.WithContext(ctx).Create(&dto).Error
}

func (r *GormAuditRepository) ListByRecord(ctx context.Context, table, recordID string) ([]ports.AuditEntry, error) {
	var dtos []AuditDTO
	if err := r.db.WithContext(ctx).
		Where("table_name = ? AND record_id = ?", table, recordID).
		Order("id").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	out := make([]ports.AuditEntry, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, ports.AuditEntry{
			Table:     dto.Source,
			RecordID:  dto.RecordID,
			Action:    dto.Action,
			OldData:   dto.OldData,
			NewData:   dto.NewData,
			ActorID:   dto.ActorID,
			Timestamp: dto.Timestamp,
			Reason:    dto.Reason,
		})
	}
	return out, nil
}
