package recordrepo

import (
	"context"
	"errors"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/pkg/errs"

	"gorm.io/gorm"
)

type GormRecordRepository struct {
	db *gorm.DB
}

func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

func (r *GormRecordRepository) Add(ctx context.Context, rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	dto := fromDomain(rec)
	return r.db.WithContext(ctx).Omit("Seq").Create(&dto).Error
}

// UpdateStatus writes the record's status. Everything else is fixed at creation.
func (r *GormRecordRepository) UpdateStatus(ctx context.Context, rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	result := r.db.WithContext(ctx).
		Model(&RecordDTO{}).
		Where("id = ?", rec.ID().Bytes()).
		Update("status", rec.Status())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("record", rec.ID().String())
	}
	return nil
}

func (r *GormRecordRepository) Get(ctx context.Context, id kernel.UUID) (*record.Record, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	var dto RecordDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("record", id.String())
		}
		return nil, err
	}
	return toDomain(dto)
}

// ListByItem returns an item's records in creation order. An empty kind
// returns every kind.
func (r *GormRecordRepository) ListByItem(ctx context.Context, itemID kernel.UUID, kind record.Kind) ([]*record.Record, error) {
	q := r.db.WithContext(ctx).Where("item_id = ?", itemID.Bytes())
	if kind != "" {
		q = q.Where("kind = ?", string(kind))
	}

	var dtos []RecordDTO
	if err := q.Order("seq").Find(&dtos).Error; err != nil {
		return nil, err
	}

	out := make([]*record.Record, 0, len(dtos))
	for _, dto := range dtos {
		rec, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
