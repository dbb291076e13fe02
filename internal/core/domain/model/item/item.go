package item

import (
	"errors"
	"fmt"
	"time"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// ErrItemIsNotConstructed is returned when an Item was not built by NewItem or RestoreItem.
var ErrItemIsNotConstructed = errors.New("Item must be created via NewItem or RestoreItem")

// Required-field names understood by FieldPresent.
const (
	FieldProductID         = "product_id"
	FieldQuantity          = "quantity"
	FieldUnitPrice         = "unit_price"
	FieldCurrency          = "currency"
	FieldOwnerID           = "owner_id"
	FieldHeaderID          = "header_id"
	FieldLinkedOrderItemID = "linked_order_item_id"
)

// Edge is the part of a transition definition the aggregate needs in order to
// apply it. Only transition.Definition values are passed in production code.
type Edge interface {
	FromState() State
	ToState() State
	SLATimer() (time.Duration, bool)
}

// SLA holds the service-level timer for the current state.
type SLA struct {
	DueAt         *time.Time
	Breached      bool
	WarningIssued bool
}

// Audit holds the actor and timestamp columns maintained on every mutation.
type Audit struct {
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
	DeletedBy string
	DeletedAt *time.Time
}

// Item is the aggregate root for an RFQ line or an order line.
type Item struct {
	id                kernel.UUID
	kind              Kind
	headerID          kernel.UUID
	productID         string
	quantity          int
	currency          string
	unitPrice         *decimal.Decimal
	state             State
	stateEnteredAt    time.Time
	ownerID           string
	sla               SLA
	linkedOrderItemID *kernel.UUID
	audit             Audit
	version           int64

	isConstructed bool
}

// NewItem creates an item in the initial state of its kind.
func NewItem(
	id kernel.UUID,
	kind Kind,
	headerID kernel.UUID,
	productID string,
	quantity int,
	actor kernel.Actor,
	now time.Time,
) (*Item, error) {
	it := &Item{
		kind:           kind,
		state:          InitialState(kind),
		stateEnteredAt: now,
		ownerID:        actor.ID,
		audit: Audit{
			CreatedBy: actor.ID,
			CreatedAt: now,
			UpdatedBy: actor.ID,
			UpdatedAt: now,
		},
		version:       1,
		isConstructed: true,
	}

	if err := errors.Join(
		kind.Validate(),
		it.setID(id),
		it.setHeaderID(headerID),
		it.setProductID(productID),
		it.setQuantity(quantity),
		actor.Validate(),
	); err != nil {
		return nil, err
	}

	return it, nil
}

// RestoreParams carries persisted column values for RestoreItem.
type RestoreParams struct {
	ID                kernel.UUID
	Kind              Kind
	HeaderID          kernel.UUID
	ProductID         string
	Quantity          int
	Currency          string
	UnitPrice         *decimal.Decimal
	State             State
	StateEnteredAt    time.Time
	OwnerID           string
	SLA               SLA
	LinkedOrderItemID *kernel.UUID
	Audit             Audit
	Version           int64
}

// RestoreItem rebuilds an item from storage, validating kind and state.
func RestoreItem(p RestoreParams) (*Item, error) {
	if err := errors.Join(p.ID.Validate(), p.Kind.Validate()); err != nil {
		return nil, err
	}
	if err := p.State.Validate(p.Kind); err != nil {
		return nil, err
	}
	if p.Version < 1 {
		return nil, errs.NewValueIsOutOfRangeError("version", p.Version, 1, "unbounded")
	}

	return &Item{
		id:                p.ID,
		kind:              p.Kind,
		headerID:          p.HeaderID,
		productID:         p.ProductID,
		quantity:          p.Quantity,
		currency:          p.Currency,
		unitPrice:         p.UnitPrice,
		state:             p.State,
		stateEnteredAt:    p.StateEnteredAt,
		ownerID:           p.OwnerID,
		sla:               p.SLA,
		linkedOrderItemID: p.LinkedOrderItemID,
		audit:             p.Audit,
		version:           p.Version,
		isConstructed:     true,
	}, nil
}

// Validate ensures the item was built through a constructor.
func (i *Item) Validate() error {
	if i == nil || !i.isConstructed {
		return ErrItemIsNotConstructed
	}
	return nil
}

func (i *Item) ID() kernel.UUID               { return i.id }
func (i *Item) Kind() Kind                    { return i.kind }
func (i *Item) HeaderID() kernel.UUID         { return i.headerID }
func (i *Item) ProductID() string             { return i.productID }
func (i *Item) Quantity() int                 { return i.quantity }
func (i *Item) Currency() string              { return i.currency }
func (i *Item) State() State                  { return i.state }
func (i *Item) StateEnteredAt() time.Time     { return i.stateEnteredAt }
func (i *Item) OwnerID() string               { return i.ownerID }
func (i *Item) SLA() SLA                      { return i.sla }
func (i *Item) LinkedOrderItem() *kernel.UUID { return i.linkedOrderItemID }
func (i *Item) Audit() Audit                  { return i.audit }
func (i *Item) Version() int64                { return i.version }

// UnitPrice returns the agreed unit price, or nil when pricing has not happened.
func (i *Item) UnitPrice() *decimal.Decimal {
	if i.unitPrice == nil {
		return nil
	}
	p := *i.unitPrice
	return &p
}

// Value returns quantity × unit price, or false when the item is unpriced.
func (i *Item) Value() (kernel.Money, bool) {
	if i.unitPrice == nil || i.currency == "" {
		return kernel.Money{}, false
	}
	return kernel.Money{Amount: *i.unitPrice, Currency: i.currency}.Times(i.quantity), true
}

// IsTerminal reports whether the item can no longer be modified.
func (i *Item) IsTerminal() bool {
	return i.state.IsTerminal(i.kind)
}

// IsDeleted reports whether the item has been soft-deleted.
func (i *Item) IsDeleted() bool {
	return i.audit.DeletedAt != nil
}

// FieldPresent reports whether the named field is set to a usable value.
// Unknown field names are treated as absent so a typo in the table fails closed.
func (i *Item) FieldPresent(name string) bool {
	switch name {
	case FieldProductID:
		return i.productID != ""
	case FieldQuantity:
		return i.quantity > 0
	case FieldUnitPrice:
		return i.unitPrice != nil && i.unitPrice.IsPositive()
	case FieldCurrency:
		return i.currency != ""
	case FieldOwnerID:
		return i.ownerID != ""
	case FieldHeaderID:
		return !i.headerID.IsZero()
	case FieldLinkedOrderItemID:
		return i.linkedOrderItemID != nil
	default:
		return false
	}
}

// MissingFields returns the subset of names that are not present, in order.
func (i *Item) MissingFields(names []string) []string {
	var missing []string
	for _, name := range names {
		if !i.FieldPresent(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// ApplyTransition moves the item along edge. Callers validate role, fields and
// preconditions first; this method only enforces that the edge starts at the
// current state and that the item is still mutable.
func (i *Item) ApplyTransition(edge Edge, actor kernel.Actor, now time.Time) error {
	if err := i.assertMutable(); err != nil {
		return err
	}
	if edge.FromState() != i.state {
		return errs.NewIllegalTransitionError(string(i.kind), string(i.state), string(edge.ToState()))
	}
	if err := edge.ToState().Validate(i.kind); err != nil {
		return err
	}

	i.state = edge.ToState()
	i.stateEnteredAt = now
	i.sla = SLA{}
	if d, ok := edge.SLATimer(); ok {
		due := now.Add(d)
		i.sla.DueAt = &due
	}
	i.touch(actor, now)
	return nil
}

// SetPricing records the agreed unit price and currency.
func (i *Item) SetPricing(unitPrice decimal.Decimal, currency string, actor kernel.Actor, now time.Time) error {
	if err := i.assertMutable(); err != nil {
		return err
	}
	if !unitPrice.IsPositive() {
		return errs.NewValueIsInvalidErrorWithCause("unit price", fmt.Errorf("%s is not greater than 0", unitPrice))
	}
	if currency == "" {
		return errs.NewValueIsRequiredError("currency")
	}
	i.unitPrice = &unitPrice
	i.currency = currency
	i.touch(actor, now)
	return nil
}

// LinkOrderItem records the order line this RFQ line was converted into.
func (i *Item) LinkOrderItem(orderItemID kernel.UUID, actor kernel.Actor, now time.Time) error {
	if err := i.assertMutable(); err != nil {
		return err
	}
	if i.kind != KindRFQItem {
		return errs.NewValueIsInvalidErrorWithCause("lineage", fmt.Errorf("%s items cannot be linked", i.kind))
	}
	if err := orderItemID.Validate(); err != nil {
		return err
	}
	i.linkedOrderItemID = &orderItemID
	i.touch(actor, now)
	return nil
}

// AssignOwner hands the item to another responsible actor or queue.
func (i *Item) AssignOwner(ownerID string, actor kernel.Actor, now time.Time) error {
	if err := i.assertMutable(); err != nil {
		return err
	}
	if ownerID == "" {
		return errs.NewValueIsRequiredError("owner id")
	}
	i.ownerID = ownerID
	i.touch(actor, now)
	return nil
}

// MarkSLAWarning flags the item as approaching its deadline. It returns false
// when the flag was already set, so callers notify only once.
func (i *Item) MarkSLAWarning(now time.Time) (bool, error) {
	if err := i.assertMutable(); err != nil {
		return false, err
	}
	if i.sla.WarningIssued || i.sla.Breached {
		return false, nil
	}
	i.sla.WarningIssued = true
	i.touch(kernel.SystemActor, now)
	return true, nil
}

// MarkSLABreached flags the item as past its deadline. It returns false when
// the breach was already recorded.
func (i *Item) MarkSLABreached(now time.Time) (bool, error) {
	if err := i.assertMutable(); err != nil {
		return false, err
	}
	if i.sla.Breached {
		return false, nil
	}
	i.sla.Breached = true
	i.touch(kernel.SystemActor, now)
	return true, nil
}

// SoftDelete marks the item deleted. Only items that never left their
// initial state may be deleted.
func (i *Item) SoftDelete(actor kernel.Actor, now time.Time) error {
	if err := i.assertMutable(); err != nil {
		return err
	}
	if i.state != InitialState(i.kind) {
		return errs.NewValueIsInvalidErrorWithCause(
			"state is invalid",
			fmt.Errorf("item in %s can no longer be deleted", i.state),
		)
	}
	i.audit.DeletedBy = actor.ID
	i.audit.DeletedAt = &now
	i.touch(actor, now)
	return nil
}

// MarkPersisted is called by repositories after a successful versioned write.
func (i *Item) MarkPersisted(version int64) {
	i.version = version
}

// Clone returns a deep copy, used by in-memory stores to avoid aliasing.
func (i *Item) Clone() *Item {
	c := *i
	if i.unitPrice != nil {
		p := *i.unitPrice
		c.unitPrice = &p
	}
	if i.linkedOrderItemID != nil {
		l := *i.linkedOrderItemID
		c.linkedOrderItemID = &l
	}
	if i.sla.DueAt != nil {
		d := *i.sla.DueAt
		c.sla.DueAt = &d
	}
	if i.audit.DeletedAt != nil {
		d := *i.audit.DeletedAt
		c.audit.DeletedAt = &d
	}
	return &c
}

func (i *Item) assertMutable() error {
	if i.IsTerminal() {
		return errs.NewImmutableItemError(i.id.String(), string(i.state))
	}
	return nil
}

func (i *Item) touch(actor kernel.Actor, now time.Time) {
	i.audit.UpdatedBy = actor.ID
	i.audit.UpdatedAt = now
}

func (i *Item) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	i.id = id
	return nil
}

func (i *Item) setHeaderID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("header id", err)
	}
	i.headerID = id
	return nil
}

func (i *Item) setProductID(productID string) error {
	if productID == "" {
		return errs.NewValueIsRequiredError("product id")
	}
	i.productID = productID
	return nil
}

func (i *Item) setQuantity(quantity int) error {
	if quantity <= 0 {
		return errs.NewValueIsInvalidErrorWithCause("quantity is invalid", fmt.Errorf("%d is not greater than 0", quantity))
	}
	i.quantity = quantity
	return nil
}
