package queries

import (
	"context"
	"errors"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/guard"
)

var (
	ErrGetOpenItemsQueryIsNotConstructed = errors.New(
		"GetOpenItemsQuery must be created via NewGetOpenItemsQuery constructor",
	)
)

// GetOpenItemsQuery lists live items that have not reached a terminal state,
// oldest state entry first, so the longest-waiting work is on top.
//
// Example:
//
//	kind := item.KindOrderItem
//	query, err := NewGetOpenItemsQuery(&kind, "")
//	if err != nil {
//	    return err
//	}
//	items, err := handler.Handle(ctx, query)
type GetOpenItemsQuery struct {
	kind    *item.Kind
	ownerID string

	guard guard.ConstructorGuard
}

// NewGetOpenItemsQuery narrows the list to kind and owner when they are set.
func NewGetOpenItemsQuery(kind *item.Kind, ownerID string) (GetOpenItemsQuery, error) {
	if kind != nil {
		if err := kind.Validate(); err != nil {
			return GetOpenItemsQuery{}, err
		}
	}
	return GetOpenItemsQuery{kind: kind, ownerID: ownerID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOpenItemsQuery) Kind() *item.Kind { return q.kind }
func (q GetOpenItemsQuery) OwnerID() string  { return q.ownerID }

func (q GetOpenItemsQuery) Validate() error {
	return q.guard.Validate(ErrGetOpenItemsQueryIsNotConstructed)
}

// GetOpenItemsQueryResponse is one row of the open work list.
type GetOpenItemsQueryResponse struct {
	ID             kernel.UUID `json:"id"`
	Kind           item.Kind   `json:"kind"`
	HeaderID       kernel.UUID `json:"header_id"`
	ProductID      string      `json:"product_id"`
	Quantity       int         `json:"quantity"`
	State          item.State  `json:"state"`
	StateEnteredAt time.Time   `json:"state_entered_at"`
	OwnerID        string      `json:"owner_id"`
	SLADueAt       *time.Time  `json:"sla_due_at,omitempty"`
	SLABreached    bool        `json:"sla_breached"`
}

// GetOpenItemsHandler is satisfied by both storage-specific handlers.
type GetOpenItemsHandler interface {
	Handle(ctx context.Context, query GetOpenItemsQuery) ([]GetOpenItemsQueryResponse, error)
}
