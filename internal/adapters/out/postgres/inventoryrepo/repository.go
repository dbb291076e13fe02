// Package inventoryrepo keeps stock levels and the stock movement ledger.
// Every change locks the product's stock row for the length of its own
// transaction.
package inventoryrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradeflow/internal/pkg/errs"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Movement types.
const (
	MovementIn      = "IN"
	MovementOut     = "OUT"
	MovementReserve = "RESERVE"
)

type StockLevelDTO struct {
	ProductID string `gorm:"type:varchar(128);primaryKey"`
	OnHand    int    `gorm:"not null;default:0"`
	Reserved  int    `gorm:"not null;default:0"`
}

func (StockLevelDTO) TableName() string {
	return "stock_levels"
}

type StockMovementDTO struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	ProductID  string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_stock_movements_ref"`
	Type       string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_stock_movements_ref"`
	Quantity   int       `gorm:"not null"`
	StockAfter int       `gorm:"not null"`
	Reference  string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_stock_movements_ref"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (StockMovementDTO) TableName() string {
	return "stock_movements"
}

type GormInventory struct {
	db *gorm.DB
}

func NewGormInventory(db *gorm.DB) *GormInventory {
	return &GormInventory{db: db}
}

// SetOnHand replaces a product's on-hand quantity and clears reservations.
func (inv *GormInventory) SetOnHand(ctx context.Context, productID string, quantity int) error {
	level := StockLevelDTO{ProductID: productID, OnHand: quantity}
	return inv.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"on_hand", "reserved"}),
	}).Create(&level).Error
}

func (inv *GormInventory) Available(ctx context.Context, productID string) (int, error) {
	var level StockLevelDTO
	err := inv.db.WithContext(ctx).First(&level, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return level.OnHand - level.Reserved, nil
}

func (inv *GormInventory) Reserved(ctx context.Context, productID, reference string) (int, error) {
	var m StockMovementDTO
	err := inv.db.WithContext(ctx).
		Where("product_id = ? AND type = ? AND reference = ?", productID, MovementReserve, reference).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return m.Quantity, nil
}

func (inv *GormInventory) Reserve(ctx context.Context, productID string, quantity int, reference string) error {
	_, err := inv.move(ctx, productID, quantity, MovementReserve, reference, func(l *StockLevelDTO) error {
		if available := l.OnHand - l.Reserved; available < quantity {
			return fmt.Errorf("reserve %d of %s: only %d available", quantity, productID, available)
		}
		l.Reserved += quantity
		return nil
	})
	return err
}

func (inv *GormInventory) Receive(ctx context.Context, productID string, quantity int, reference string) (int, error) {
	return inv.move(ctx, productID, quantity, MovementIn, reference, func(l *StockLevelDTO) error {
		l.OnHand += quantity
		return nil
	})
}

func (inv *GormInventory) Issue(ctx context.Context, productID string, quantity int, reference string) (int, error) {
	return inv.move(ctx, productID, quantity, MovementOut, reference, func(l *StockLevelDTO) error {
		if l.Reserved < quantity {
			return fmt.Errorf("issue %d of %s: only %d reserved", quantity, productID, l.Reserved)
		}
		l.Reserved -= quantity
		l.OnHand -= quantity
		return nil
	})
}

// Movements returns a product's ledger, oldest first.
func (inv *GormInventory) Movements(ctx context.Context, productID string) ([]StockMovementDTO, error) {
	var out []StockMovementDTO
	err := inv.db.WithContext(ctx).Where("product_id = ?", productID).Order("id").Find(&out).Error
	return out, err
}

func (inv *GormInventory) move(
	ctx context.Context,
	productID string,
	quantity int,
	movementType, reference string,
	apply func(l *StockLevelDTO) error,
) (int, error) {
	if quantity <= 0 {
		return 0, errs.NewValueIsOutOfRangeError("quantity", quantity, 1, "unbounded")
	}
	if reference == "" {
		return 0, errs.NewValueIsRequiredError("movement reference")
	}

	var onHand int
	err := inv.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&StockLevelDTO{ProductID: productID}).Error; err != nil {
			return err
		}

		var level StockLevelDTO
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&level, "product_id = ?", productID).Error; err != nil {
			return err
		}

		var repeated int64
		if err := tx.Model(&StockMovementDTO{}).
			Where("product_id = ? AND type = ? AND reference = ?", productID, movementType, reference).
			Count(&repeated).Error; err != nil {
			return err
		}
		if repeated > 0 {
			onHand = level.OnHand
			return nil
		}

		if err := apply(&level); err != nil {
			return err
		}
		if err := tx.Model(&StockLevelDTO{}).
			Where("product_id = ?", productID).
			Updates(map[string]any{"on_hand": level.OnHand, "reserved": level.Reserved}).Error; err != nil {
			return err
		}

		onHand = level.OnHand
		return tx.Create(&StockMovementDTO{
			ProductID:  productID,
			Type:       movementType,
			Quantity:   quantity,
			StockAfter: level.OnHand,
			Reference:  reference,
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return onHand, nil
}
