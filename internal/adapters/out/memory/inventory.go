package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradeflow/internal/pkg/errs"
)

// Stock movement types, following the IN/OUT ledger of the warehouse.
const (
	MovementIn      = "IN"
	MovementOut     = "OUT"
	MovementReserve = "RESERVE"
)

// Movement is one line of the stock ledger.
type Movement struct {
	ProductID  string
	Type       string
	Quantity   int
	StockAfter int
	Reference  string
	At         time.Time
}

type stockLevel struct {
	onHand   int
	reserved int
}

// Inventory is an in-process stock ledger.
type Inventory struct {
	mu        sync.Mutex
	levels    map[string]*stockLevel
	movements []Movement
	now       func() time.Time
}

func NewInventory() *Inventory {
	return &Inventory{levels: make(map[string]*stockLevel), now: time.Now}
}

// SetOnHand replaces the on-hand quantity of a product and clears reservations.
func (inv *Inventory) SetOnHand(productID string, quantity int) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.levels[productID] = &stockLevel{onHand: quantity}
}

func (inv *Inventory) level(productID string) *stockLevel {
	l, ok := inv.levels[productID]
	if !ok {
		l = &stockLevel{}
		inv.levels[productID] = l
	}
	return l
}

func (inv *Inventory) Available(_ context.Context, productID string) (int, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	l := inv.level(productID)
	return l.onHand - l.reserved, nil
}

func (inv *Inventory) Reserved(_ context.Context, productID, reference string) (int, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if m, ok := inv.find(productID, MovementReserve, reference); ok {
		return m.Quantity, nil
	}
	return 0, nil
}

func (inv *Inventory) Reserve(_ context.Context, productID string, quantity int, reference string) error {
	if err := validateMovement(quantity, reference); err != nil {
		return err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if _, ok := inv.find(productID, MovementReserve, reference); ok {
		return nil
	}
	l := inv.level(productID)
	if available := l.onHand - l.reserved; available < quantity {
		return fmt.Errorf("reserve %d of %s: only %d available", quantity, productID, available)
	}
	l.reserved += quantity
	inv.record(productID, MovementReserve, quantity, l.onHand, reference)
	return nil
}

func (inv *Inventory) Receive(_ context.Context, productID string, quantity int, reference string) (int, error) {
	if err := validateMovement(quantity, reference); err != nil {
		return 0, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	l := inv.level(productID)
	if _, ok := inv.find(productID, MovementIn, reference); ok {
		return l.onHand, nil
	}
	l.onHand += quantity
	inv.record(productID, MovementIn, quantity, l.onHand, reference)
	return l.onHand, nil
}

func (inv *Inventory) Issue(_ context.Context, productID string, quantity int, reference string) (int, error) {
	if err := validateMovement(quantity, reference); err != nil {
		return 0, err
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	l := inv.level(productID)
	if _, ok := inv.find(productID, MovementOut, reference); ok {
		return l.onHand, nil
	}
	if l.reserved < quantity {
		return 0, fmt.Errorf("issue %d of %s: only %d reserved", quantity, productID, l.reserved)
	}
	l.reserved -= quantity
	l.onHand -= quantity
	inv.record(productID, MovementOut, quantity, l.onHand, reference)
	return l.onHand, nil
}

// Movements returns the ledger of a product, oldest first.
func (inv *Inventory) Movements(productID string) []Movement {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	var out []Movement
	for _, m := range inv.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

func validateMovement(quantity int, reference string) error {
	if quantity <= 0 {
		return errs.NewValueIsOutOfRangeError("quantity", quantity, 1, "unbounded")
	}
	if reference == "" {
		return errs.NewValueIsRequiredError("movement reference")
	}
	return nil
}

func (inv *Inventory) find(productID, typ, reference string) (Movement, bool) {
	for _, m := range inv.movements {
		if m.ProductID == productID && m.Type == typ && m.Reference == reference {
			return m, true
		}
	}
	return Movement{}, false
}

func (inv *Inventory) record(productID, typ string, quantity, after int, reference string) {
	inv.movements = append(inv.movements, Movement{
		ProductID:  productID,
		Type:       typ,
		Quantity:   quantity,
		StockAfter: after,
		Reference:  reference,
		At:         inv.now(),
	})
}
