package services

import (
	"errors"

	"tradeflow/internal/core/domain/model/supplier"
)

// ErrVendorNotFound is returned when none of the offered vendors can supply
// the requested quantity.
var ErrVendorNotFound = errors.New("no eligible vendor found")

// VendorSelector picks the vendor for a sourcing or procurement request.
//
// Selection rules:
//   - Vendors must be approved and able to supply the full quantity
//   - The lowest unit cost wins
//   - Ties are broken by shorter lead time, then by input order
//
// Example usage:
//
//	selector := NewVendorSelector()
//	v, err := selector.Select(vendors, 6)
//	if errors.Is(err, ErrVendorNotFound) {
//	    // escalate to sourcing
//	}
type VendorSelector struct{}

func NewVendorSelector() VendorSelector {
	return VendorSelector{}
}

// Select returns the best vendor for quantity.
func (s VendorSelector) Select(vendors []supplier.Vendor, quantity int) (supplier.Vendor, error) {
	var (
		best  supplier.Vendor
		found bool
	)

	for _, v := range vendors {
		if err := v.Validate(); err != nil {
			return supplier.Vendor{}, err
		}
		if !v.CanSupply(quantity) {
			continue
		}
		if !found || s.better(v, best) {
			best = v
			found = true
		}
	}

	if !found {
		return supplier.Vendor{}, ErrVendorNotFound
	}
	return best, nil
}

func (s VendorSelector) better(candidate, current supplier.Vendor) bool {
	if c := candidate.UnitCost.Cmp(current.UnitCost); c != 0 {
		return c < 0
	}
	return candidate.LeadTimeDays < current.LeadTimeDays
}
