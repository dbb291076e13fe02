package directoryrepo

import (
	"context"
	"time"

	"tradeflow/internal/core/ports"

	"gorm.io/gorm"
)

type ActivityDTO struct {
	ID      int64     `gorm:"primaryKey;autoIncrement"`
	RunID   string    `gorm:"type:varchar(64);not null;index"`
	Phase   string    `gorm:"type:varchar(32);not null"`
	Event   string    `gorm:"type:varchar(16);not null"`
	Message string    `gorm:"type:text"`
	At      time.Time `gorm:"not null"`
}

func (ActivityDTO) TableName() string {
	return "run_activity"
}

// GormActivityLog writes outside any item transaction so the log survives a
// failed phase.
type GormActivityLog struct {
	db *gorm.DB
}

func NewGormActivityLog(db *gorm.DB) *GormActivityLog {
	return &GormActivityLog{db: db}
}

func (l *GormActivityLog) Append(ctx context.Context, entry ports.ActivityEntry) error {
	return l.db.WithContext(ctx).Create(&ActivityDTO{
		RunID:   entry.RunID,
		Phase:   entry.Phase,
		Event:   entry.Event,
		Message: entry.Message,
		At:      entry.At,
	}).Error
}

func (l *GormActivityLog) List(ctx context.Context, runID string) ([]ports.ActivityEntry, error) {
	var dtos []ActivityDTO
	if err := l.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&dtos).Error; err != nil {
		return nil, err
	}
	out := make([]ports.ActivityEntry, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, ports.ActivityEntry{
			RunID:   dto.RunID,
			Phase:   dto.Phase,
			Event:   dto.Event,
			Message: dto.Message,
			At:      dto.At,
		})
	}
	return out, nil
}
