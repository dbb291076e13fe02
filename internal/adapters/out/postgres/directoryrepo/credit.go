package directoryrepo

import (
	"context"
	"errors"

	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreditLineDTO struct {
	CustomerRef string          `gorm:"type:varchar(64);primaryKey"`
	Available   decimal.Decimal `gorm:"type:numeric(18,4);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
}

func (CreditLineDTO) TableName() string {
	return "credit_lines"
}

type GormCreditLedger struct {
	db *gorm.DB
}

func NewGormCreditLedger(db *gorm.DB) *GormCreditLedger {
	return &GormCreditLedger{db: db}
}

func (c *GormCreditLedger) SetAvailable(ctx context.Context, customerRef string, amount decimal.Decimal, currency string) error {
	dto := CreditLineDTO{CustomerRef: customerRef, Available: amount, Currency: currency}
	return c.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&dto).Error
}

// AvailableCredit fails with ObjectNotFound when the customer has no credit line.
func (c *GormCreditLedger) AvailableCredit(ctx context.Context, customerRef string) (decimal.Decimal, string, error) {
	var dto CreditLineDTO
	if err := c.db.WithContext(ctx).First(&dto, "customer_ref = ?", customerRef).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, "", errs.NewObjectNotFoundError("credit line", customerRef)
		}
		return decimal.Zero, "", err
	}
	return dto.Available, dto.Currency, nil
}
