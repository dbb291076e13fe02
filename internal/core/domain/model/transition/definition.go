package transition

import (
	"fmt"
	"slices"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"
)

// SideEffectType tags a side effect declared on an edge.
type SideEffectType string

const (
	SideEffectNotify   SideEffectType = "NOTIFY"
	SideEffectCreate   SideEffectType = "CREATE"
	SideEffectUpdate   SideEffectType = "UPDATE"
	SideEffectStartSLA SideEffectType = "START_SLA"
)

// TargetOwner addresses a NOTIFY side effect to the item's current owner.
const TargetOwner = "owner"

// SideEffect is a tagged union: which fields are meaningful depends on Type.
//
//	NOTIFY    Target, Event
//	CREATE    Record
//	UPDATE    Field, Value
//	START_SLA Duration
type SideEffect struct {
	Type     SideEffectType `yaml:"type" json:"type"`
	Target   string         `yaml:"target,omitempty" json:"target,omitempty"`
	Event    string         `yaml:"event,omitempty" json:"event,omitempty"`
	Record   string         `yaml:"record,omitempty" json:"record,omitempty"`
	Field    string         `yaml:"field,omitempty" json:"field,omitempty"`
	Value    string         `yaml:"value,omitempty" json:"value,omitempty"`
	Duration time.Duration  `yaml:"duration,omitempty" json:"duration,omitempty"`
}

func (s SideEffect) String() string {
	switch s.Type {
	case SideEffectNotify:
		return fmt.Sprintf("NOTIFY(%s,%s)", s.Target, s.Event)
	case SideEffectCreate:
		return fmt.Sprintf("CREATE(%s)", s.Record)
	case SideEffectUpdate:
		return fmt.Sprintf("UPDATE(%s=%s)", s.Field, s.Value)
	case SideEffectStartSLA:
		return fmt.Sprintf("START_SLA(%s)", s.Duration)
	default:
		return string(s.Type)
	}
}

// Validate checks that the fields required by Type are set.
func (s SideEffect) Validate() error {
	switch s.Type {
	case SideEffectNotify:
		if s.Target == "" || s.Event == "" {
			return errs.NewValueIsRequiredErrorWithCause("side effect", fmt.Errorf("%s needs target and event", s.Type))
		}
	case SideEffectCreate:
		if s.Record == "" {
			return errs.NewValueIsRequiredErrorWithCause("side effect", fmt.Errorf("%s needs record", s.Type))
		}
	case SideEffectUpdate:
		if s.Field != item.FieldOwnerID {
			return errs.NewValueIsInvalidErrorWithCause("side effect", fmt.Errorf("%s only supports %s, got %q", s.Type, item.FieldOwnerID, s.Field))
		}
		if s.Value == "" {
			return errs.NewValueIsRequiredErrorWithCause("side effect", fmt.Errorf("%s needs value", s.Type))
		}
	case SideEffectStartSLA:
		if s.Duration <= 0 {
			return errs.NewValueIsOutOfRangeError("sla duration", s.Duration, "1ns", "unbounded")
		}
	default:
		return errs.NewValueIsInvalidErrorWithCause("side effect", fmt.Errorf("unknown type %q", s.Type))
	}
	return nil
}

// Key identifies an edge.
type Key struct {
	Kind item.Kind
	From item.State
	To   item.State
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s->%s", k.Kind, k.From, k.To)
}

// Definition is one legal edge of a kind's state machine.
type Definition struct {
	Kind                  item.Kind
	From                  item.State
	To                    item.State
	AllowedRoles          []kernel.Role
	RequiredFields        []string
	Preconditions         []string
	SideEffects           []SideEffect
	RequiresJustification bool
	IsAutomatic           bool
	// IsEmergency marks the synthesized close-to-FORCE_CLOSED edge.
	IsEmergency bool
}

func (d Definition) Key() Key {
	return Key{Kind: d.Kind, From: d.From, To: d.To}
}

func (d Definition) FromState() item.State { return d.From }
func (d Definition) ToState() item.State   { return d.To }

// SLATimer returns the first START_SLA duration declared on the edge.
func (d Definition) SLATimer() (time.Duration, bool) {
	for _, se := range d.SideEffects {
		if se.Type == SideEffectStartSLA {
			return se.Duration, true
		}
	}
	return 0, false
}

// PostCommitEffects returns the NOTIFY/CREATE/UPDATE effects in declaration order.
func (d Definition) PostCommitEffects() []SideEffect {
	var out []SideEffect
	for _, se := range d.SideEffects {
		if se.Type != SideEffectStartSLA {
			out = append(out, se)
		}
	}
	return out
}

// AllowsRole reports whether role is listed on the edge. It ignores IsAutomatic.
func (d Definition) AllowsRole(role kernel.Role) bool {
	return slices.Contains(d.AllowedRoles, role)
}

func (d Definition) validate() error {
	if err := d.Kind.Validate(); err != nil {
		return err
	}
	if err := d.From.Validate(d.Kind); err != nil {
		return err
	}
	if err := d.To.Validate(d.Kind); err != nil {
		return err
	}
	if d.From == d.To {
		return errs.NewValueIsInvalidErrorWithCause("edge", fmt.Errorf("%s is a self-loop", d.Key()))
	}
	if d.From.IsTerminal(d.Kind) {
		return errs.NewValueIsInvalidErrorWithCause("edge", fmt.Errorf("%s leaves a terminal state", d.Key()))
	}
	if d.To == item.StateForceClosed {
		return errs.NewValueIsInvalidErrorWithCause("edge", fmt.Errorf("%s: %s is reached only through emergency close", d.Key(), item.StateForceClosed))
	}
	if !d.IsAutomatic && len(d.AllowedRoles) == 0 {
		return errs.NewValueIsRequiredErrorWithCause("allowed roles", fmt.Errorf("%s is manual", d.Key()))
	}
	for _, r := range d.AllowedRoles {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%s: %w", d.Key(), err)
		}
	}
	for _, f := range d.RequiredFields {
		if !slices.Contains(knownFields, f) {
			return errs.NewValueIsInvalidErrorWithCause("required field", fmt.Errorf("%s: unknown field %q", d.Key(), f))
		}
	}
	for _, se := range d.SideEffects {
		if err := se.Validate(); err != nil {
			return fmt.Errorf("%s: %w", d.Key(), err)
		}
	}
	return nil
}

var knownFields = []string{
	item.FieldProductID,
	item.FieldQuantity,
	item.FieldUnitPrice,
	item.FieldCurrency,
	item.FieldOwnerID,
	item.FieldHeaderID,
	item.FieldLinkedOrderItemID,
}
