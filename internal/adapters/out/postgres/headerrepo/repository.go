// Package headerrepo persists document headers.
package headerrepo

import (
	"context"
	"errors"
	"time"

	"tradeflow/internal/core/domain/model/header"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HeaderDTO struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind        string    `gorm:"type:varchar(32);not null"`
	Reference   string    `gorm:"type:varchar(64);not null;index"`
	CustomerRef string    `gorm:"type:varchar(64);not null;index"`
	DocumentAt  time.Time `gorm:"not null"`
	CreatedBy   string    `gorm:"type:varchar(128);not null"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime:false"`
}

func (HeaderDTO) TableName() string {
	return "headers"
}

type GormHeaderRepository struct {
	db *gorm.DB
}

func NewGormHeaderRepository(db *gorm.DB) *GormHeaderRepository {
	return &GormHeaderRepository{db: db}
}

func (r *GormHeaderRepository) Add(ctx context.Context, aggregate *header.Header) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}
	dto := HeaderDTO{
		ID:          aggregate.ID().Bytes(),
		Kind:        string(aggregate.Kind()),
		Reference:   aggregate.Reference(),
		CustomerRef: aggregate.CustomerRef(),
		DocumentAt:  aggregate.DocumentAt(),
		CreatedBy:   aggregate.CreatedBy(),
		CreatedAt:   aggregate.CreatedAt(),
	}
	return r.db.WithContext(ctx).Create(&dto).Error
}

func (r *GormHeaderRepository) Get(ctx context.Context, id kernel.UUID) (*header.Header, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto HeaderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("header", id.String())
		}
		return nil, err
	}

	headerID, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}
	return header.RestoreHeader(headerID, item.Kind(dto.Kind), dto.Reference, dto.CustomerRef, dto.DocumentAt, dto.CreatedBy, dto.CreatedAt)
}
