package ports

import (
	"context"

	"tradeflow/internal/core/domain/model/header"
	"tradeflow/internal/core/domain/model/kernel"
)

// HeaderRepository stores document headers. Headers are written once.
type HeaderRepository interface {
	Add(ctx context.Context, aggregate *header.Header) error
	Get(ctx context.Context, id kernel.UUID) (*header.Header, error)
}
