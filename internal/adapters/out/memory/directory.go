package memory

import (
	"context"
	"sync"
	"time"

	"tradeflow/internal/core/domain/model/supplier"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// VendorDirectory holds vendor offers per product.
type VendorDirectory struct {
	mu      sync.RWMutex
	vendors []supplier.Vendor
	err     error
}

func NewVendorDirectory(vendors ...supplier.Vendor) *VendorDirectory {
	return &VendorDirectory{vendors: vendors}
}

func (d *VendorDirectory) Add(v supplier.Vendor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vendors = append(d.vendors, v)
}

// FailWith makes subsequent lookups fail, simulating an unreachable directory.
func (d *VendorDirectory) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *VendorDirectory) FindEligible(_ context.Context, productID string, quantity int) ([]supplier.Vendor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.err != nil {
		return nil, d.err
	}
	var out []supplier.Vendor
	for _, v := range d.vendors {
		if v.ProductID == productID && v.CanSupply(quantity) {
			out = append(out, v)
		}
	}
	return out, nil
}

// InspectionRepository stores QC outcomes by lot reference.
type InspectionRepository struct {
	mu       sync.RWMutex
	outcomes map[string]ports.InspectionOutcome
}

func NewInspectionRepository() *InspectionRepository {
	return &InspectionRepository{outcomes: make(map[string]ports.InspectionOutcome)}
}

func (r *InspectionRepository) Save(_ context.Context, outcome ports.InspectionOutcome) error {
	if outcome.LotReference == "" {
		return errs.NewValueIsRequiredError("lot reference")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome.LotReference] = outcome
	return nil
}

func (r *InspectionRepository) Find(_ context.Context, lotReference string) (ports.InspectionOutcome, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outcomes[lotReference]
	return o, ok, nil
}

type creditLine struct {
	available decimal.Decimal
	currency  string
}

// CreditLedger holds the available credit per customer.
type CreditLedger struct {
	mu    sync.RWMutex
	lines map[string]creditLine
}

func NewCreditLedger() *CreditLedger {
	return &CreditLedger{lines: make(map[string]creditLine)}
}

func (c *CreditLedger) SetAvailable(customerRef string, amount decimal.Decimal, currency string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines[customerRef] = creditLine{available: amount, currency: currency}
}

func (c *CreditLedger) AvailableCredit(_ context.Context, customerRef string) (decimal.Decimal, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	line, ok := c.lines[customerRef]
	if !ok {
		return decimal.Zero, "", errs.NewObjectNotFoundError("customer credit", customerRef)
	}
	return line.available, line.currency, nil
}

// ActivityLog keeps run activity in memory.
type ActivityLog struct {
	mu      sync.RWMutex
	entries []ports.ActivityEntry
}

func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

func (l *ActivityLog) Append(_ context.Context, entry ports.ActivityEntry) error {
	if entry.At.IsZero() {
		entry.At = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *ActivityLog) List(_ context.Context, runID string) ([]ports.ActivityEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []ports.ActivityEntry
	for _, e := range l.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}
