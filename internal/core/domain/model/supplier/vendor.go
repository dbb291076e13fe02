// Package supplier models the vendors procurement and sourcing buy from.
package supplier

import (
	"errors"

	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// Vendor is a supplier offer for one product.
type Vendor struct {
	ID           string
	Name         string
	ProductID    string
	UnitCost     decimal.Decimal
	Currency     string
	LeadTimeDays int
	// MaxQuantity is the largest quantity the vendor will supply per order; 0 means unlimited.
	MaxQuantity int
	Approved    bool
}

func (v Vendor) Validate() error {
	var idErr, costErr, curErr error
	if v.ID == "" {
		idErr = errs.NewValueIsRequiredError("vendor id")
	}
	if !v.UnitCost.IsPositive() {
		costErr = errs.NewValueIsOutOfRangeError("unit cost", v.UnitCost, "0.01", "unbounded")
	}
	if v.Currency == "" {
		curErr = errs.NewValueIsRequiredError("vendor currency")
	}
	return errors.Join(idErr, costErr, curErr)
}

// CanSupply reports whether the vendor is approved and can deliver quantity.
func (v Vendor) CanSupply(quantity int) bool {
	return v.Approved && (v.MaxQuantity == 0 || v.MaxQuantity >= quantity)
}
