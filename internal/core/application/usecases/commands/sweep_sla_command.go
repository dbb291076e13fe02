package commands

import (
	"errors"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/pkg/guard"
)

var ErrSweepSLACommandIsNotConstructed = errors.New(
	"SweepSLACommand must be created via NewSweepSLACommand constructor",
)

// SweepSLACommand scopes one SLA sweep. A nil kind sweeps every kind; a zero
// now means the handler's clock.
type SweepSLACommand struct {
	kind *item.Kind
	now  time.Time

	guard guard.ConstructorGuard
}

func NewSweepSLACommand(kind *item.Kind, now time.Time) (SweepSLACommand, error) {
	if kind != nil {
		if err := kind.Validate(); err != nil {
			return SweepSLACommand{}, err
		}
		k := *kind
		kind = &k
	}
	return SweepSLACommand{kind: kind, now: now, guard: guard.NewConstructorGuard()}, nil
}

func (c SweepSLACommand) Kind() *item.Kind { return c.kind }
func (c SweepSLACommand) Now() time.Time   { return c.now }

func (c SweepSLACommand) Validate() error {
	return c.guard.Validate(ErrSweepSLACommandIsNotConstructed)
}
