package directoryrepo

import (
	"context"
	"errors"
	"time"

	"tradeflow/internal/core/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InspectionDTO struct {
	LotReference string    `gorm:"type:varchar(64);primaryKey"`
	Passed       bool      `gorm:"not null"`
	Inspector    string    `gorm:"type:varchar(128);not null"`
	Notes        string    `gorm:"type:text"`
	RecordedAt   time.Time `gorm:"not null"`
}

func (InspectionDTO) TableName() string {
	return "lot_inspections"
}

type GormInspectionRepository struct {
	db *gorm.DB
}

func NewGormInspectionRepository(db *gorm.DB) *GormInspectionRepository {
	return &GormInspectionRepository{db: db}
}

// Save records a verdict; a later verdict for the same lot replaces it.
func (r *GormInspectionRepository) Save(ctx context.Context, outcome ports.InspectionOutcome) error {
	dto := InspectionDTO{
		LotReference: outcome.LotReference,
		Passed:       outcome.Passed,
		Inspector:    outcome.Inspector,
		Notes:        outcome.Notes,
		RecordedAt:   outcome.RecordedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&dto).Error
}

func (r *GormInspectionRepository) Find(ctx context.Context, lotReference string) (ports.InspectionOutcome, bool, error) {
	var dto InspectionDTO
	err := r.db.WithContext(ctx).First(&dto, "lot_reference = ?", lotReference).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ports.InspectionOutcome{}, false, nil
	}
	if err != nil {
		return ports.InspectionOutcome{}, false, err
	}
	return ports.InspectionOutcome{
		LotReference: dto.LotReference,
		Passed:       dto.Passed,
		Inspector:    dto.Inspector,
		Notes:        dto.Notes,
		RecordedAt:   dto.RecordedAt,
	}, true, nil
}
