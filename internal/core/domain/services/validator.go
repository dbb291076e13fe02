package services

import (
	"context"
	"fmt"
	"strings"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

// RBAC action checked for manual transitions other than emergency close. The
// resource is the item kind.
const ActionTransition = "transition"

// TransitionRequest is everything Validate needs to judge one transition.
type TransitionRequest struct {
	Item          *item.Item
	To            item.State
	Actor         kernel.Actor
	Justification string
	Records       ports.RecordRepository
	Headers       ports.HeaderRepository
}

// Validator decides whether a transition is legal without side effects, so it
// also answers "what can I do next" queries.
//
// Checks run in this order and the first failure wins:
//   - edge exists in the table (VALIDATION)
//   - role is allowed unless the edge is automatic (AUTHORIZATION); the RBAC
//     catalogue cannot veto the emergency-close roles
//   - justification is present when the edge requires one (VALIDATION)
//   - required fields are set, all missing names reported (VALIDATION)
//   - named preconditions hold, first failing reason reported (PRECONDITION_FAILED)
type Validator struct {
	table         *transition.Table
	access        ports.RoleAccess
	preconditions *Preconditions
}

// NewValidator fails when the table references a precondition the registry
// does not know.
func NewValidator(table *transition.Table, access ports.RoleAccess, preconditions *Preconditions) (*Validator, error) {
	if table == nil {
		return nil, errs.NewValueIsRequiredError("transition table")
	}
	if access == nil {
		return nil, errs.NewValueIsRequiredError("role access")
	}
	if preconditions == nil {
		return nil, errs.NewValueIsRequiredError("preconditions")
	}
	var missing []string
	for _, name := range table.PreconditionNames() {
		if !preconditions.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errs.NewValueIsInvalidErrorWithCause(
			"transition table",
			fmt.Errorf("unregistered preconditions: %s", strings.Join(missing, ", ")),
		)
	}
	return &Validator{table: table, access: access, preconditions: preconditions}, nil
}

// Table exposes the table the validator judges against.
func (v *Validator) Table() *transition.Table {
	return v.table
}

// IsLegal reports whether an edge from -> to exists for kind.
func (v *Validator) IsLegal(kind item.Kind, from, to item.State) bool {
	_, ok := v.table.Lookup(kind, from, to)
	return ok
}

// CanActorPerform reports whether role may take the edge from -> to.
func (v *Validator) CanActorPerform(kind item.Kind, from, to item.State, role kernel.Role) bool {
	def, ok := v.table.Lookup(kind, from, to)
	if !ok {
		return false
	}
	return v.roleAllowed(def, role)
}

// ListLegalNext returns the states role may move an item of kind to from
// from, in table order.
func (v *Validator) ListLegalNext(kind item.Kind, from item.State, role kernel.Role) []item.State {
	var next []item.State
	for _, def := range v.table.Outgoing(kind, from) {
		if v.roleAllowed(def, role) {
			next = append(next, def.To)
		}
	}
	return next
}

// Validate runs every check for req and returns the matching edge.
func (v *Validator) Validate(ctx context.Context, req TransitionRequest) (transition.Definition, error) {
	it := req.Item
	def, ok := v.table.Lookup(it.Kind(), it.State(), req.To)
	if !ok {
		return transition.Definition{}, errs.NewIllegalTransitionError(string(it.Kind()), string(it.State()), string(req.To))
	}

	if !v.roleAllowed(def, req.Actor.Role) {
		return transition.Definition{}, errs.NewAuthorizationError(string(req.Actor.Role), string(def.From), string(def.To))
	}

	if def.RequiresJustification && strings.TrimSpace(req.Justification) == "" {
		return transition.Definition{}, errs.NewJustificationRequiredError(string(def.From), string(def.To))
	}

	if missing := it.MissingFields(def.RequiredFields); len(missing) > 0 {
		return transition.Definition{}, errs.NewMissingFieldsError(it.ID().String(), missing)
	}

	in := PreconditionInput{Item: it, Records: req.Records, Headers: req.Headers}
	for _, name := range def.Preconditions {
		passed, reason, err := v.preconditions.Evaluate(ctx, name, in)
		if err != nil {
			return transition.Definition{}, fmt.Errorf("evaluate precondition %s: %w", name, err)
		}
		if !passed {
			wfErr := errs.NewPreconditionFailedError(name, reason)
			wfErr.ItemID = it.ID().String()
			wfErr.State = string(it.State())
			return transition.Definition{}, wfErr
		}
	}

	return def, nil
}

func (v *Validator) roleAllowed(def transition.Definition, role kernel.Role) bool {
	if def.IsAutomatic {
		return true
	}
	// Emergency close is always open to the roles the table names for it.
	if def.IsEmergency {
		return def.AllowsRole(role)
	}
	return def.AllowsRole(role) && v.access.RoleHasAccess(role, string(def.Kind), ActionTransition)
}
