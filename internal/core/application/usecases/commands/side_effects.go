package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/metrics"
)

// SideEffectResult reports the outcome of one post-commit side effect.
type SideEffectResult struct {
	SideEffect string `json:"side_effect"`
	Success    bool   `json:"success"`
	Detail     string `json:"detail"`
}

type sideEffectHandler func(
	ctx context.Context,
	it *item.Item,
	def transition.Definition,
	se transition.SideEffect,
	actor kernel.Actor,
) (string, error)

// SideEffectRunner executes the NOTIFY, CREATE and UPDATE effects of an
// applied transition, in declaration order. Every effect runs on its own and
// a failure is logged and reported, never returned.
type SideEffectRunner struct {
	uowFactory UoWFactory
	notifier   ports.Notifier
	logger     *slog.Logger
	now        Clock
	handlers   map[transition.SideEffectType]sideEffectHandler
}

func NewSideEffectRunner(uowFactory UoWFactory, notifier ports.Notifier, logger *slog.Logger, now Clock) *SideEffectRunner {
	r := &SideEffectRunner{
		uowFactory: uowFactory,
		notifier:   notifier,
		logger:     logger.With("component", "side_effects"),
		now:        now,
	}
	r.handlers = map[transition.SideEffectType]sideEffectHandler{
		transition.SideEffectNotify: r.notify,
		transition.SideEffectCreate: r.create,
		transition.SideEffectUpdate: r.update,
	}
	return r
}

// Run executes def's post-commit effects for the item that has just taken it.
func (r *SideEffectRunner) Run(ctx context.Context, it *item.Item, def transition.Definition, actor kernel.Actor) []SideEffectResult {
	effects := def.PostCommitEffects()
	results := make([]SideEffectResult, 0, len(effects))

	for _, se := range effects {
		res := SideEffectResult{SideEffect: se.String()}
		handler, ok := r.handlers[se.Type]
		if !ok {
			res.Detail = "no handler for " + string(se.Type)
		} else if detail, err := handler(ctx, it, def, se, actor); err != nil {
			res.Detail = err.Error()
		} else {
			res.Success = true
			res.Detail = detail
		}

		if !res.Success {
			r.logger.WarnContext(ctx, "side effect failed",
				"item_id", it.ID().String(),
				"side_effect", res.SideEffect,
				"error", res.Detail,
			)
		}
		metrics.SideEffects.WithLabelValues(string(se.Type), strconv.FormatBool(res.Success)).Inc()
		results = append(results, res)
	}
	return results
}

func (r *SideEffectRunner) notify(
	ctx context.Context,
	it *item.Item,
	def transition.Definition,
	se transition.SideEffect,
	actor kernel.Actor,
) (string, error) {
	target := se.Target
	if target == transition.TargetOwner {
		target = it.OwnerID()
	}
	payload := map[string]any{
		"item_id":  it.ID().String(),
		"kind":     string(it.Kind()),
		"from":     string(def.From),
		"to":       string(def.To),
		"actor_id": actor.ID,
	}
	if err := r.notifier.Notify(ctx, target, se.Event, payload); err != nil {
		return "", fmt.Errorf("notify %s: %w", target, err)
	}
	return fmt.Sprintf("%s notified of %s", target, se.Event), nil
}

func (r *SideEffectRunner) create(
	ctx context.Context,
	it *item.Item,
	_ transition.Definition,
	se transition.SideEffect,
	actor kernel.Actor,
) (string, error) {
	kind := record.Kind(se.Record)
	if err := kind.Validate(); err != nil {
		return "", err
	}

	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", err
	}
	defer func() {
		_ = uow.Rollback(ctx)
	}()

	records := uow.RecordRepository()
	existing, err := records.ListByItem(ctx, it.ID(), kind)
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		return existing[0].Reference() + " already exists", nil
	}

	params := record.Params{HeaderID: it.HeaderID(), Quantity: it.Quantity()}
	if value, ok := it.Value(); ok {
		params.Amount = value.Amount
		params.Currency = value.Currency
	}
	rec, err := record.NewRecord(kind, it.ID(), params, actor, r.now())
	if err != nil {
		return "", err
	}
	if err = records.Add(ctx, rec); err != nil {
		return "", err
	}
	if err = uow.AuditRepository().Append(ctx, ports.AuditEntry{
		Table:     AuditTableRecords,
		RecordID:  rec.ID().String(),
		Action:    ports.AuditActionCreate,
		NewData:   snapshotRecord(rec),
		ActorID:   actor.ID,
		Timestamp: rec.CreatedAt(),
	}); err != nil {
		return "", err
	}
	if err = uow.Commit(ctx); err != nil {
		return "", err
	}
	return rec.Reference() + " created", nil
}

func (r *SideEffectRunner) update(
	ctx context.Context,
	it *item.Item,
	_ transition.Definition,
	se transition.SideEffect,
	actor kernel.Actor,
) (string, error) {
	if se.Field != item.FieldOwnerID {
		return "", fmt.Errorf("field %q cannot be updated by a side effect", se.Field)
	}
	now := r.now()
	if _, err := mutateItem(ctx, r.uowFactory, it.ID(), actor, ports.AuditActionUpdate, now,
		func(current *item.Item) error {
			return current.AssignOwner(se.Value, actor, now)
		},
	); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s=%s", se.Field, se.Value), nil
}
