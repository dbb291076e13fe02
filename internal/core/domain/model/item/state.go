package item

import (
	"fmt"
	"slices"

	"tradeflow/internal/pkg/errs"
)

// Kind distinguishes the two stateful line types.
type Kind string

const (
	KindRFQItem   Kind = "RFQ_ITEM"
	KindOrderItem Kind = "ORDER_ITEM"
)

// Kinds lists every entity kind that carries workflow state.
func Kinds() []Kind {
	return []Kind{KindRFQItem, KindOrderItem}
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) Validate() error {
	if k != KindRFQItem && k != KindOrderItem {
		return errs.NewValueIsInvalidErrorWithCause("kind", fmt.Errorf("%q is not an item kind", string(k)))
	}
	return nil
}

// State is a workflow state name. The same type serves both kinds; which
// states are valid depends on the Kind.
type State string

// RFQ item states.
const (
	StateDraft            State = "DRAFT"
	StateRFQSubmitted     State = "RFQ_SUBMITTED"
	StateTechReview       State = "TECH_REVIEW"
	StateComplianceReview State = "COMPLIANCE_REVIEW"
	StateSourcing         State = "SOURCING"
	StatePricing          State = "PRICING"
	StatePriceApproval    State = "PRICE_APPROVAL"
	StateQuoted           State = "QUOTED"
	StateWon              State = "WON"
	StateLost             State = "LOST"
	StateRFQClosed        State = "RFQ_CLOSED"
)

// Order item states.
const (
	StateOrderCreated    State = "ORDER_CREATED"
	StateConfirmed       State = "CONFIRMED"
	StateStockReserved   State = "STOCK_RESERVED"
	StateProcurement     State = "PROCUREMENT"
	StatePORaised        State = "PO_RAISED"
	StateGoodsReceived   State = "GOODS_RECEIVED"
	StateQCInspection    State = "QC_INSPECTION"
	StateQCPassed        State = "QC_PASSED"
	StateQCFailed        State = "QC_FAILED"
	StateReadyToDispatch State = "READY_TO_DISPATCH"
	StateDispatched      State = "DISPATCHED"
	StateDelivered       State = "DELIVERED"
	StateInvoiced        State = "INVOICED"
	StatePaid            State = "PAID"
	StateClosed          State = "CLOSED"
)

// StateForceClosed is the emergency-close terminal state shared by both kinds.
const StateForceClosed State = "FORCE_CLOSED"

var (
	rfqStates = []State{
		StateDraft, StateRFQSubmitted, StateTechReview, StateComplianceReview, StateSourcing,
		StatePricing, StatePriceApproval, StateQuoted, StateWon, StateLost, StateRFQClosed, StateForceClosed,
	}
	orderStates = []State{
		StateOrderCreated, StateConfirmed, StateStockReserved, StateProcurement, StatePORaised,
		StateGoodsReceived, StateQCInspection, StateQCPassed, StateQCFailed, StateReadyToDispatch,
		StateDispatched, StateDelivered, StateInvoiced, StatePaid, StateClosed, StateForceClosed,
	}
	terminalStates = map[Kind][]State{
		KindRFQItem:   {StateRFQClosed, StateForceClosed},
		KindOrderItem: {StateClosed, StateForceClosed},
	}
)

func (s State) String() string {
	return string(s)
}

// States returns every valid state of kind in pipeline order.
func States(kind Kind) []State {
	switch kind {
	case KindRFQItem:
		return slices.Clone(rfqStates)
	case KindOrderItem:
		return slices.Clone(orderStates)
	default:
		return nil
	}
}

// InitialState is the state a freshly submitted item of kind starts in.
func InitialState(kind Kind) State {
	if kind == KindRFQItem {
		return StateDraft
	}
	return StateOrderCreated
}

// TerminalStates returns the states after which an item of kind is immutable.
func TerminalStates(kind Kind) []State {
	return slices.Clone(terminalStates[kind])
}

// AllTerminalStates is the union of every kind's terminal set.
func AllTerminalStates() []State {
	return []State{StateRFQClosed, StateClosed, StateForceClosed}
}

// IsTerminal reports whether s is terminal for kind. Unknown kinds fall back
// to the union so a corrupt kind can never unlock a closed row.
func (s State) IsTerminal(kind Kind) bool {
	if set, ok := terminalStates[kind]; ok {
		return slices.Contains(set, s)
	}
	return slices.Contains(AllTerminalStates(), s)
}

// Validate checks that s belongs to kind.
func (s State) Validate(kind Kind) error {
	if !slices.Contains(States(kind), s) {
		return errs.NewValueIsInvalidErrorWithCause(
			"state is invalid",
			fmt.Errorf("%q is not a %s state", string(s), kind),
		)
	}
	return nil
}
