package transition

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

//go:embed transitions.yaml
var defaultTableYAML []byte

// EmergencyPolicy configures the close-to-FORCE_CLOSED edge of one kind.
type EmergencyPolicy struct {
	Roles                 []kernel.Role `yaml:"roles"`
	RequiresJustification bool          `yaml:"requires_justification"`
	SideEffects           []SideEffect  `yaml:"side_effects"`
}

type edgeDocument struct {
	Kind                  item.Kind     `yaml:"kind"`
	From                  item.State    `yaml:"from"`
	To                    item.State    `yaml:"to"`
	Roles                 []kernel.Role `yaml:"roles"`
	RequiredFields        []string      `yaml:"required_fields"`
	Preconditions         []string      `yaml:"preconditions"`
	SideEffects           []SideEffect  `yaml:"side_effects"`
	RequiresJustification bool          `yaml:"requires_justification"`
	Automatic             bool          `yaml:"automatic"`
}

type tableDocument struct {
	EmergencyClose map[item.Kind]EmergencyPolicy `yaml:"emergency_close"`
	Transitions    []edgeDocument                `yaml:"transitions"`
}

// Table is the immutable set of legal edges, keyed by (kind, from, to).
type Table struct {
	edges     map[Key]Definition
	outgoing  map[item.Kind]map[item.State][]Definition
	ordered   []Definition
	emergency map[item.Kind]EmergencyPolicy
}

// Default returns the table compiled into the binary.
func Default() (*Table, error) {
	return Load(defaultTableYAML)
}

// LoadFile reads a table from a YAML file on disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transition table %s: %w", path, err)
	}
	return Load(data)
}

// Load parses and validates a YAML table. Duplicate edges, states foreign to
// the kind, and edges leaving a terminal state are rejected.
func Load(data []byte) (*Table, error) {
	var doc tableDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse transition table: %w", err)
	}
	if len(doc.Transitions) == 0 {
		return nil, errs.NewValueIsRequiredError("transitions")
	}

	t := &Table{
		edges:     make(map[Key]Definition, len(doc.Transitions)),
		outgoing:  make(map[item.Kind]map[item.State][]Definition),
		emergency: make(map[item.Kind]EmergencyPolicy, len(doc.EmergencyClose)),
	}

	var loadErrs []error
	for _, e := range doc.Transitions {
		def := Definition{
			Kind:                  e.Kind,
			From:                  e.From,
			To:                    e.To,
			AllowedRoles:          e.Roles,
			RequiredFields:        e.RequiredFields,
			Preconditions:         e.Preconditions,
			SideEffects:           e.SideEffects,
			RequiresJustification: e.RequiresJustification,
			IsAutomatic:           e.Automatic,
		}
		if err := def.validate(); err != nil {
			loadErrs = append(loadErrs, err)
			continue
		}
		if _, dup := t.edges[def.Key()]; dup {
			loadErrs = append(loadErrs, errs.NewValueIsInvalidErrorWithCause("edge", fmt.Errorf("%s is declared twice", def.Key())))
			continue
		}
		t.edges[def.Key()] = def
		t.ordered = append(t.ordered, def)
		if t.outgoing[def.Kind] == nil {
			t.outgoing[def.Kind] = make(map[item.State][]Definition)
		}
		t.outgoing[def.Kind][def.From] = append(t.outgoing[def.Kind][def.From], def)
	}

	for kind, policy := range doc.EmergencyClose {
		if err := kind.Validate(); err != nil {
			loadErrs = append(loadErrs, err)
			continue
		}
		if len(policy.Roles) == 0 {
			loadErrs = append(loadErrs, errs.NewValueIsRequiredErrorWithCause("emergency roles", fmt.Errorf("kind %s", kind)))
			continue
		}
		for _, r := range policy.Roles {
			if err := r.Validate(); err != nil {
				loadErrs = append(loadErrs, err)
			}
		}
		for _, se := range policy.SideEffects {
			if err := se.Validate(); err != nil {
				loadErrs = append(loadErrs, err)
			}
		}
		t.emergency[kind] = policy
	}

	if err := errors.Join(loadErrs...); err != nil {
		return nil, fmt.Errorf("invalid transition table: %w", err)
	}
	return t, nil
}

// Lookup returns the edge from -> to for kind. The emergency edge to
// FORCE_CLOSED is synthesized for every non-terminal state of a kind that has
// an emergency policy.
func (t *Table) Lookup(kind item.Kind, from, to item.State) (Definition, bool) {
	if def, ok := t.edges[Key{Kind: kind, From: from, To: to}]; ok {
		return def, true
	}
	if to == item.StateForceClosed {
		return t.emergencyEdge(kind, from)
	}
	return Definition{}, false
}

// Outgoing returns every edge leaving from, declared edges first in file
// order, then the emergency edge when applicable.
func (t *Table) Outgoing(kind item.Kind, from item.State) []Definition {
	out := slices.Clone(t.outgoing[kind][from])
	if def, ok := t.emergencyEdge(kind, from); ok {
		out = append(out, def)
	}
	return out
}

// Edges returns the declared edges of kind in file order.
func (t *Table) Edges(kind item.Kind) []Definition {
	var out []Definition
	for _, d := range t.ordered {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// EmergencyRoles returns the roles allowed to force-close items of kind.
func (t *Table) EmergencyRoles(kind item.Kind) []kernel.Role {
	return slices.Clone(t.emergency[kind].Roles)
}

// PreconditionNames lists every precondition referenced by the table.
func (t *Table) PreconditionNames() []string {
	var names []string
	for _, d := range t.ordered {
		for _, p := range d.Preconditions {
			if !slices.Contains(names, p) {
				names = append(names, p)
			}
		}
	}
	return names
}

func (t *Table) emergencyEdge(kind item.Kind, from item.State) (Definition, bool) {
	policy, ok := t.emergency[kind]
	if !ok || from.Validate(kind) != nil || from.IsTerminal(kind) {
		return Definition{}, false
	}
	return Definition{
		Kind:                  kind,
		From:                  from,
		To:                    item.StateForceClosed,
		AllowedRoles:          slices.Clone(policy.Roles),
		SideEffects:           slices.Clone(policy.SideEffects),
		RequiresJustification: policy.RequiresJustification,
		IsEmergency:           true,
	}, true
}
