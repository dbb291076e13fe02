package itemrepo

import (
	"context"
	"errors"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"gorm.io/gorm"
)

// GormItemRepository implements ItemRepository using GORM.
type GormItemRepository struct {
	db *gorm.DB
}

func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// Add saves a new item to the database.
func (r *GormItemRepository) Add(ctx context.Context, aggregate *item.Item) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// Update writes every mutable column in one statement guarded by the loaded
// version and by the row not being closed. When no row matches, the row is
// re-read to tell a stale version from a closed item.
func (r *GormItemRepository) Update(ctx context.Context, aggregate *item.Item) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	expected := dto.Version
	dto.Version = expected + 1

	result := r.db.WithContext(ctx).
		Model(&ItemDTO{}).
		Where("id = ? AND version = ? AND state NOT IN ?", dto.ID, expected, terminalStates()).
		Select("*").
		Omit("id", "kind", "header_id", "created_by", "created_at").
		Updates(&dto)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		current, err := r.Get(ctx, aggregate.ID())
		if err != nil {
			return err
		}
		if current.IsTerminal() {
			return errs.NewImmutableItemError(current.ID().String(), string(current.State()))
		}
		return errs.NewConcurrentModificationError(aggregate.ID().String(), expected)
	}

	aggregate.MarkPersisted(dto.Version)
	return nil
}

// Get retrieves an item by ID, deleted or not.
func (r *GormItemRepository) Get(ctx context.Context, id kernel.UUID) (*item.Item, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	var dto ItemDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id.Bytes()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("item", id.String())
		}
		return nil, err
	}

	return toDomain(dto)
}

// ListByHeader returns the items of a document in creation order.
func (r *GormItemRepository) ListByHeader(ctx context.Context, headerID kernel.UUID) ([]*item.Item, error) {
	var dtos []ItemDTO
	if err := r.db.WithContext(ctx).
		Where("header_id = ?", headerID.Bytes()).
		Order("created_at, id").
		Find(&dtos).Error; err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

// ListOpenWithDeadline returns live, open items that carry an SLA deadline.
func (r *GormItemRepository) ListOpenWithDeadline(ctx context.Context, kind *item.Kind) ([]*item.Item, error) {
	q := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND sla_due_at IS NOT NULL AND state NOT IN ?", terminalStates())
	if kind != nil {
		q = q.Where("kind = ?", string(*kind))
	}

	var dtos []ItemDTO
	if err := q.Order("sla_due_at").Find(&dtos).Error; err != nil {
		return nil, err
	}
	return toDomainList(dtos)
}

func toDomainList(dtos []ItemDTO) ([]*item.Item, error) {
	items := make([]*item.Item, 0, len(dtos))
	for _, dto := range dtos {
		it, err := toDomain(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func terminalStates() []string {
	states := item.AllTerminalStates()
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}
