package ports

import (
	"context"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
)

// RecordRepository stores derived business records.
type RecordRepository interface {
	// Add persists a new record.
	Add(ctx context.Context, r *record.Record) error

	// UpdateStatus persists a status change, the only mutation records allow.
	UpdateStatus(ctx context.Context, r *record.Record) error

	// Get retrieves a record by id.
	Get(ctx context.Context, id kernel.UUID) (*record.Record, error)

	// ListByItem returns the records of kind attached to an item, oldest
	// first. An empty kind returns every record of the item.
	ListByItem(ctx context.Context, itemID kernel.UUID, kind record.Kind) ([]*record.Record, error)
}
