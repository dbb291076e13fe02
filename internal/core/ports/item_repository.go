// Package ports defines the contracts between the workflow core and its
// infrastructure: repositories, the unit of work, and the collaborators the
// executor, orchestrator and SLA monitor call out to.
package ports

import (
	"context"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
)

// ItemRepository defines the persistence contract for item aggregates.
//
// Update is the lowest persistence boundary of the system and enforces two
// rules no caller can bypass:
//   - rows in a terminal state are never written (IMMUTABLE_ITEM)
//   - the stored version must equal the aggregate's loaded version
//     (CONCURRENT_MODIFICATION); on success the aggregate's version is bumped
type ItemRepository interface {
	// Add persists a new item. The item must be valid and not already exist.
	Add(ctx context.Context, aggregate *item.Item) error

	// Update persists changes to an existing item using optimistic concurrency.
	Update(ctx context.Context, aggregate *item.Item) error

	// Get retrieves an item by id. Soft-deleted items are returned as well so
	// callers can report why they cannot be used.
	Get(ctx context.Context, id kernel.UUID) (*item.Item, error)

	// ListByHeader returns the items of a document in creation order.
	ListByHeader(ctx context.Context, headerID kernel.UUID) ([]*item.Item, error)

	// ListOpenWithDeadline returns non-deleted, non-terminal items that carry
	// an SLA deadline. A nil kind means every kind.
	ListOpenWithDeadline(ctx context.Context, kind *item.Kind) ([]*item.Item, error)
}
