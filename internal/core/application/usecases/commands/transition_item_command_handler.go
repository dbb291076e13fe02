package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/domain/services"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
	"tradeflow/internal/pkg/metrics"
)

// TransitionResult is what the executor reports for an applied transition.
type TransitionResult struct {
	ItemID      kernel.UUID        `json:"item_id"`
	From        item.State         `json:"from"`
	To          item.State         `json:"to"`
	EnteredAt   time.Time          `json:"entered_at"`
	DueAt       *time.Time         `json:"due_at,omitempty"`
	Version     int64              `json:"version"`
	SideEffects []SideEffectResult `json:"side_effects"`
}

// TransitionItemCommandHandler is the transition executor.
//
// Inside one transaction it loads the item, runs the immutability guard
// (which short-circuits every other check), validates the edge, applies it,
// writes the item with an optimistic version check, and appends the audit
// row. NOTIFY, CREATE and UPDATE side effects run after commit and cannot
// undo the transition.
//
// Example:
//
//	result, err := handler.Handle(ctx, cmd)
//	switch kind, _ := errs.KindOf(err); kind {
//	case errs.KindConcurrentModification:
//	    // re-read and retry
//	case errs.KindImmutableItem, errs.KindAuthorization:
//	    // give up
//	}
type TransitionItemCommandHandler struct {
	uowFactory UoWFactory
	validator  *services.Validator
	guard      services.ImmutabilityGuard
	effects    *SideEffectRunner
	logger     *slog.Logger
	now        Clock
}

func NewTransitionItemCommandHandler(
	uowFactory UoWFactory,
	validator *services.Validator,
	effects *SideEffectRunner,
	logger *slog.Logger,
	now Clock,
) (*TransitionItemCommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if validator == nil {
		return nil, errs.NewValueIsRequiredError("validator")
	}
	if effects == nil {
		return nil, errs.NewValueIsRequiredError("effects")
	}
	if now == nil {
		now = time.Now
	}
	return &TransitionItemCommandHandler{
		uowFactory: uowFactory,
		validator:  validator,
		guard:      services.NewImmutabilityGuard(),
		effects:    effects,
		logger:     logger.With("component", "executor"),
		now:        now,
	}, nil
}

func (h *TransitionItemCommandHandler) Handle(ctx context.Context, command TransitionItemCommand) (TransitionResult, error) {
	if err := command.Validate(); err != nil {
		return TransitionResult{}, err
	}

	it, def, err := h.apply(ctx, command)
	if err != nil {
		kind := ""
		if it != nil {
			kind = string(it.Kind())
		}
		result := metrics.ResultFailed
		if _, ok := errs.KindOf(err); ok {
			result = metrics.ResultRejected
		}
		metrics.ItemTransitions.WithLabelValues(kind, string(command.To()), result).Inc()
		return TransitionResult{}, err
	}
	metrics.ItemTransitions.WithLabelValues(string(it.Kind()), string(def.To), metrics.ResultApplied).Inc()

	h.logger.InfoContext(ctx, "item transitioned",
		"item_id", it.ID().String(),
		"from", string(def.From),
		"to", string(def.To),
		"actor_id", command.Actor().ID,
		"version", it.Version(),
	)

	return TransitionResult{
		ItemID:      it.ID(),
		From:        def.From,
		To:          def.To,
		EnteredAt:   it.StateEnteredAt(),
		DueAt:       it.SLA().DueAt,
		Version:     it.Version(),
		SideEffects: h.effects.Run(ctx, it, def, command.Actor()),
	}, nil
}

func (h *TransitionItemCommandHandler) apply(
	ctx context.Context,
	command TransitionItemCommand,
) (*item.Item, transition.Definition, error) {
	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, transition.Definition{}, err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	items := uow.ItemRepository()
	it, err := items.Get(ctx, command.ItemID())
	if err != nil {
		return nil, transition.Definition{}, err
	}

	if err = h.guard.AssertMutable(it); err != nil {
		return it, transition.Definition{}, err
	}
	if it.IsDeleted() {
		return it, transition.Definition{}, errs.NewValueIsInvalidErrorWithCause(
			"item", fmt.Errorf("item %s has been deleted", it.ID()),
		)
	}

	def, err := h.validator.Validate(ctx, services.TransitionRequest{
		Item:          it,
		To:            command.To(),
		Actor:         command.Actor(),
		Justification: command.Justification(),
		Records:       uow.RecordRepository(),
		Headers:       uow.HeaderRepository(),
	})
	if err != nil {
		return it, transition.Definition{}, err
	}

	before := snapshotItem(it)
	now := h.now()
	if err = it.ApplyTransition(def, command.Actor(), now); err != nil {
		return it, transition.Definition{}, err
	}
	if err = items.Update(ctx, it); err != nil {
		return it, transition.Definition{}, err
	}

	if err = uow.AuditRepository().Append(ctx, ports.AuditEntry{
		Table:     AuditTableItems,
		RecordID:  it.ID().String(),
		Action:    ports.AuditActionTransition,
		OldData:   before,
		NewData:   snapshotItem(it),
		ActorID:   command.Actor().ID,
		Timestamp: now,
		Reason:    command.Justification(),
	}); err != nil {
		return it, transition.Definition{}, err
	}

	if err = uow.Commit(ctx); err != nil {
		if errors.Is(err, errs.ErrConcurrentModification) || errors.Is(err, errs.ErrImmutableItem) {
			return it, transition.Definition{}, err
		}
		return it, transition.Definition{}, fmt.Errorf("commit transition: %w", err)
	}
	return it, def, nil
}
