package ports

import (
	"context"
	"time"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/supplier"

	"github.com/shopspring/decimal"
)

// Notifier delivers an event to a role or a user. Callers treat failures as
// warnings; a notification outage never blocks a transition.
type Notifier interface {
	Notify(ctx context.Context, target, event string, payload map[string]any) error
}

// RoleAccess answers RBAC questions for the validator.
type RoleAccess interface {
	RoleHasAccess(role kernel.Role, resource, action string) bool
}

// Inventory tracks on-hand and reserved stock per product.
// Available = on hand - reserved. Reserve, Receive and Issue are idempotent per
// reference: repeating a movement whose reference is already on the ledger
// changes nothing.
type Inventory interface {
	Available(ctx context.Context, productID string) (int, error)
	// Reserved returns the quantity reserved under reference, 0 if none.
	Reserved(ctx context.Context, productID, reference string) (int, error)
	// Reserve earmarks quantity for an order line; it fails when less than
	// quantity is available.
	Reserve(ctx context.Context, productID string, quantity int, reference string) error
	// Receive posts goods into stock and returns the on-hand quantity after.
	Receive(ctx context.Context, productID string, quantity int, reference string) (int, error)
	// Issue removes reserved goods from stock on dispatch and returns the
	// on-hand quantity after.
	Issue(ctx context.Context, productID string, quantity int, reference string) (int, error)
}

// VendorDirectory looks up vendors able to supply a product.
type VendorDirectory interface {
	FindEligible(ctx context.Context, productID string, quantity int) ([]supplier.Vendor, error)
}

// InspectionOutcome is the recorded result of inspecting one received lot.
type InspectionOutcome struct {
	LotReference string    `json:"lot_reference"`
	Passed       bool      `json:"passed"`
	Inspector    string    `json:"inspector"`
	Notes        string    `json:"notes,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

// InspectionRepository stores lot inspection outcomes entered by QC.
type InspectionRepository interface {
	Save(ctx context.Context, outcome InspectionOutcome) error
	// Find returns false when the lot has not been inspected yet.
	Find(ctx context.Context, lotReference string) (InspectionOutcome, bool, error)
}

// CreditChecker reports the credit a customer still has available.
type CreditChecker interface {
	AvailableCredit(ctx context.Context, customerRef string) (decimal.Decimal, string, error)
}
