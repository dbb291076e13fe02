package queries

import (
	"context"
	"slices"
	"strings"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GetOpenItemsQueryHandler reads the open work list straight from PostgreSQL.
type GetOpenItemsQueryHandler struct {
	db *gorm.DB
}

func NewGetOpenItemsQueryHandler(db *gorm.DB) GetOpenItemsQueryHandler {
	return GetOpenItemsQueryHandler{db: db}
}

func (h GetOpenItemsQueryHandler) Handle(ctx context.Context, query GetOpenItemsQuery) ([]GetOpenItemsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	terminal := make([]string, 0, 3)
	for _, s := range item.AllTerminalStates() {
		terminal = append(terminal, string(s))
	}
	var kind, owner *string
	if query.Kind() != nil {
		k := string(*query.Kind())
		kind = &k
	}
	if query.OwnerID() != "" {
		o := query.OwnerID()
		owner = &o
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			kind,
			header_id,
			product_id,
			quantity,
			state,
			state_entered_at,
			owner_id,
			sla_due_at,
			sla_breached
		FROM items
		WHERE deleted_at IS NULL
			AND state NOT IN ?
			AND (CAST(? AS varchar) IS NULL OR kind = ?)
			AND (CAST(? AS varchar) IS NULL OR owner_id = ?)
		ORDER BY state_entered_at, id
	`, terminal, kind, kind, owner, owner).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]GetOpenItemsQueryResponse, 0)
	for rows.Next() {
		var (
			resp         GetOpenItemsQueryResponse
			id, headerID uuid.UUID
			kindCol      string
			stateCol     string
		)
		if err = rows.Scan(
			&id,
			&kindCol,
			&headerID,
			&resp.ProductID,
			&resp.Quantity,
			&stateCol,
			&resp.StateEnteredAt,
			&resp.OwnerID,
			&resp.SLADueAt,
			&resp.SLABreached,
		); err != nil {
			return nil, err
		}

		if resp.ID, err = kernel.UUIDFromBytes(id[:]); err != nil {
			return nil, err
		}
		if resp.HeaderID, err = kernel.UUIDFromBytes(headerID[:]); err != nil {
			return nil, err
		}
		resp.Kind = item.Kind(kindCol)
		resp.State = item.State(stateCol)
		items = append(items, resp)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// OpenItemSource lists open items for storage drivers without SQL.
type OpenItemSource interface {
	OpenItems(ctx context.Context, kind *item.Kind) ([]*item.Item, error)
}

// SourceGetOpenItemsQueryHandler answers the query from an OpenItemSource.
type SourceGetOpenItemsQueryHandler struct {
	source OpenItemSource
}

func NewSourceGetOpenItemsQueryHandler(source OpenItemSource) SourceGetOpenItemsQueryHandler {
	return SourceGetOpenItemsQueryHandler{source: source}
}

func (h SourceGetOpenItemsQueryHandler) Handle(ctx context.Context, query GetOpenItemsQuery) ([]GetOpenItemsQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	open, err := h.source.OpenItems(ctx, query.Kind())
	if err != nil {
		return nil, err
	}

	items := make([]GetOpenItemsQueryResponse, 0, len(open))
	for _, it := range open {
		if it.IsTerminal() || it.IsDeleted() {
			continue
		}
		if query.OwnerID() != "" && it.OwnerID() != query.OwnerID() {
			continue
		}
		items = append(items, GetOpenItemsQueryResponse{
			ID:             it.ID(),
			Kind:           it.Kind(),
			HeaderID:       it.HeaderID(),
			ProductID:      it.ProductID(),
			Quantity:       it.Quantity(),
			State:          it.State(),
			StateEnteredAt: it.StateEnteredAt(),
			OwnerID:        it.OwnerID(),
			SLADueAt:       it.SLA().DueAt,
			SLABreached:    it.SLA().Breached,
		})
	}
	slices.SortStableFunc(items, func(a, b GetOpenItemsQueryResponse) int {
		if c := a.StateEnteredAt.Compare(b.StateEnteredAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return items, nil
}
