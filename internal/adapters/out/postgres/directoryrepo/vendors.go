// Package directoryrepo stores the reference data the orchestrator consults:
// vendor offers, customer credit lines and QC lot verdicts.
package directoryrepo

import (
	"context"

	"tradeflow/internal/core/domain/model/supplier"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VendorOfferDTO struct {
	VendorID     string          `gorm:"type:varchar(64);primaryKey"`
	ProductID    string          `gorm:"type:varchar(128);primaryKey"`
	Name         string          `gorm:"type:varchar(256);not null"`
	UnitCost     decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Currency     string          `gorm:"type:varchar(3);not null"`
	LeadTimeDays int             `gorm:"not null"`
	MaxQuantity  int             `gorm:"not null;default:0"`
	Approved     bool            `gorm:"not null;default:false"`
}

func (VendorOfferDTO) TableName() string {
	return "vendor_offers"
}

type GormVendorDirectory struct {
	db *gorm.DB
}

func NewGormVendorDirectory(db *gorm.DB) *GormVendorDirectory {
	return &GormVendorDirectory{db: db}
}

// Save inserts or replaces a vendor's offer for one product.
func (d *GormVendorDirectory) Save(ctx context.Context, v supplier.Vendor) error {
	if err := v.Validate(); err != nil {
		return err
	}
	dto := VendorOfferDTO{
		VendorID:     v.ID,
		ProductID:    v.ProductID,
		Name:         v.Name,
		UnitCost:     v.UnitCost,
		Currency:     v.Currency,
		LeadTimeDays: v.LeadTimeDays,
		MaxQuantity:  v.MaxQuantity,
		Approved:     v.Approved,
	}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&dto).Error
}

// FindEligible returns approved offers for productID that cover quantity.
func (d *GormVendorDirectory) FindEligible(ctx context.Context, productID string, quantity int) ([]supplier.Vendor, error) {
	var dtos []VendorOfferDTO
	if err := d.db.WithContext(ctx).
		Where("product_id = ? AND approved AND (max_quantity = 0 OR max_quantity >= ?)", productID, quantity).
		Order("unit_cost, lead_time_days, vendor_id").
		Find(&dtos).Error; err != nil {
		return nil, err
	}

	out := make([]supplier.Vendor, 0, len(dtos))
	for _, dto := range dtos {
		out = append(out, supplier.Vendor{
			ID:           dto.VendorID,
			Name:         dto.Name,
			ProductID:    dto.ProductID,
			UnitCost:     dto.UnitCost,
			Currency:     dto.Currency,
			LeadTimeDays: dto.LeadTimeDays,
			MaxQuantity:  dto.MaxQuantity,
			Approved:     dto.Approved,
		})
	}
	return out, nil
}
