package queries

import (
	"errors"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/guard"
)

var (
	ErrListLegalNextQueryIsNotConstructed = errors.New(
		"ListLegalNextQuery must be created via NewListLegalNextQuery constructor",
	)
)

// ListLegalNextQuery asks which states a role may move an item to from the
// state the item is in now.
//
// Example:
//
//	query, err := NewListLegalNextQuery(itemID, kernel.RoleTechnicalEngineer)
//	if err != nil {
//	    return err
//	}
//	next, err := handler.Handle(ctx, query)
type ListLegalNextQuery struct {
	itemID kernel.UUID
	role   kernel.Role

	guard guard.ConstructorGuard
}

func NewListLegalNextQuery(itemID kernel.UUID, role kernel.Role) (ListLegalNextQuery, error) {
	if err := errors.Join(itemID.Validate(), role.Validate()); err != nil {
		return ListLegalNextQuery{}, err
	}
	return ListLegalNextQuery{itemID: itemID, role: role, guard: guard.NewConstructorGuard()}, nil
}

func (q ListLegalNextQuery) ItemID() kernel.UUID { return q.itemID }
func (q ListLegalNextQuery) Role() kernel.Role   { return q.role }

func (q ListLegalNextQuery) Validate() error {
	return q.guard.Validate(ErrListLegalNextQueryIsNotConstructed)
}

// NextState describes one edge the role may take, with what it will demand.
type NextState struct {
	State                 item.State `json:"state"`
	RequiredFields        []string   `json:"required_fields,omitempty"`
	MissingFields         []string   `json:"missing_fields,omitempty"`
	Preconditions         []string   `json:"preconditions,omitempty"`
	RequiresJustification bool       `json:"requires_justification"`
	Automatic             bool       `json:"automatic"`
	Emergency             bool       `json:"emergency"`
}

// ListLegalNextQueryResponse is empty for closed items and for deleted ones.
type ListLegalNextQueryResponse struct {
	ItemID kernel.UUID `json:"item_id"`
	Kind   item.Kind   `json:"kind"`
	State  item.State  `json:"state"`
	Next   []NextState `json:"next"`
}
