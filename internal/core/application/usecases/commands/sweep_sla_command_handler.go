package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
	"tradeflow/internal/pkg/metrics"
)

// SLA notification events.
const (
	EventSLAWarning  = "SLA_WARNING"
	EventSLABreached = "SLA_BREACHED"
)

// SweepResult counts what one sweep did. Skipped items were closed or
// modified by a concurrent transition while the sweep looked at them.
type SweepResult struct {
	Checked  int `json:"checked"`
	Warned   int `json:"warned"`
	Breached int `json:"breached"`
	Skipped  int `json:"skipped"`
}

// SLAPolicy configures the monitor.
type SLAPolicy struct {
	// WarningThreshold is how long before the deadline the owner is warned.
	WarningThreshold time.Duration
	// EscalationRole receives breach notifications.
	EscalationRole kernel.Role
}

// SweepSLACommandHandler is the SLA monitor. Each flagged item is written in
// its own transaction through the versioned, guarded update, and both the
// warning and the breach are raised at most once per state visit.
type SweepSLACommandHandler struct {
	uowFactory UoWFactory
	notifier   ports.Notifier
	policy     SLAPolicy
	logger     *slog.Logger
	now        Clock
}

var errNothingToFlag = errors.New("nothing to flag")

type slaOutcome int

const (
	slaNone slaOutcome = iota
	slaWarned
	slaBreached
)

func NewSweepSLACommandHandler(
	uowFactory UoWFactory,
	notifier ports.Notifier,
	policy SLAPolicy,
	logger *slog.Logger,
	now Clock,
) (*SweepSLACommandHandler, error) {
	if uowFactory == nil {
		return nil, errs.NewValueIsRequiredError("uowFactory")
	}
	if notifier == nil {
		return nil, errs.NewValueIsRequiredError("notifier")
	}
	if policy.WarningThreshold < 0 {
		return nil, errs.NewValueIsOutOfRangeError("warning threshold", policy.WarningThreshold, 0, "unbounded")
	}
	if policy.EscalationRole == "" {
		policy.EscalationRole = kernel.RoleDirector
	}
	if now == nil {
		now = time.Now
	}
	return &SweepSLACommandHandler{
		uowFactory: uowFactory,
		notifier:   notifier,
		policy:     policy,
		logger:     logger.With("component", "sla_monitor"),
		now:        now,
	}, nil
}

func (h *SweepSLACommandHandler) Handle(ctx context.Context, cmd SweepSLACommand) (SweepResult, error) {
	if err := cmd.Validate(); err != nil {
		return SweepResult{}, err
	}
	now := cmd.Now()
	if now.IsZero() {
		now = h.now()
	}

	candidates, err := h.uowFactory.Create().ItemRepository().ListOpenWithDeadline(ctx, cmd.Kind())
	if err != nil {
		return SweepResult{}, err
	}

	var result SweepResult
	for _, candidate := range candidates {
		result.Checked++
		metrics.SLASweepItems.WithLabelValues(metrics.OutcomeChecked).Inc()
		if classify(candidate, now, h.policy.WarningThreshold) == slaNone {
			continue
		}

		var outcome slaOutcome
		it, err := mutateItem(ctx, h.uowFactory, candidate.ID(), kernel.SystemActor, ports.AuditActionUpdate, now,
			func(current *item.Item) error {
				outcome = classify(current, now, h.policy.WarningThreshold)
				var changed bool
				var err error
				switch outcome {
				case slaBreached:
					changed, err = current.MarkSLABreached(now)
				case slaWarned:
					changed, err = current.MarkSLAWarning(now)
				}
				if err != nil {
					return err
				}
				if !changed {
					return errNothingToFlag
				}
				return nil
			},
		)
		switch {
		case err == nil:
		case errors.Is(err, errNothingToFlag):
			continue
		case errors.Is(err, errs.ErrImmutableItem), errors.Is(err, errs.ErrConcurrentModification):
			result.Skipped++
			metrics.SLASweepItems.WithLabelValues(metrics.OutcomeSkipped).Inc()
			h.logger.DebugContext(ctx, "sla sweep skipped item", "item_id", candidate.ID().String(), "error", err)
			continue
		default:
			return result, err
		}

		if outcome == slaBreached {
			result.Breached++
			metrics.SLASweepItems.WithLabelValues(metrics.OutcomeBreached).Inc()
			h.notify(ctx, string(h.policy.EscalationRole), EventSLABreached, it, now)
		} else {
			result.Warned++
			metrics.SLASweepItems.WithLabelValues(metrics.OutcomeWarned).Inc()
			h.notify(ctx, it.OwnerID(), EventSLAWarning, it, now)
		}
	}

	h.logger.InfoContext(ctx, "sla sweep finished",
		"checked", result.Checked,
		"warned", result.Warned,
		"breached", result.Breached,
		"skipped", result.Skipped,
	)
	return result, nil
}

func classify(it *item.Item, now time.Time, threshold time.Duration) slaOutcome {
	sla := it.SLA()
	if it.IsTerminal() || it.IsDeleted() || sla.DueAt == nil || sla.Breached {
		return slaNone
	}
	if !now.Before(*sla.DueAt) {
		return slaBreached
	}
	if !sla.WarningIssued && sla.DueAt.Sub(now) <= threshold {
		return slaWarned
	}
	return slaNone
}

func (h *SweepSLACommandHandler) notify(ctx context.Context, target, event string, it *item.Item, now time.Time) {
	payload := map[string]any{
		"item_id": it.ID().String(),
		"kind":    string(it.Kind()),
		"state":   string(it.State()),
		"due_at":  it.SLA().DueAt,
		"at":      now,
	}
	if err := h.notifier.Notify(ctx, target, event, payload); err != nil {
		h.logger.WarnContext(ctx, "sla notification failed",
			"item_id", it.ID().String(),
			"event", event,
			"error", err,
		)
	}
}
