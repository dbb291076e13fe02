package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
)

// RecordInspectionCommandHandler saves lot verdicts. Only QC roles may record
// them, checked through the role catalogue.
type RecordInspectionCommandHandler struct {
	inspections ports.InspectionRepository
	access      ports.RoleAccess
	logger      *slog.Logger
	now         Clock
}

// RBAC resource and action for inspection verdicts.
const (
	ResourceInspection = "QC_INSPECTION"
	ActionRecord       = "record"
)

func NewRecordInspectionCommandHandler(
	inspections ports.InspectionRepository,
	access ports.RoleAccess,
	logger *slog.Logger,
	now Clock,
) (*RecordInspectionCommandHandler, error) {
	if inspections == nil {
		return nil, errs.NewValueIsRequiredError("inspections")
	}
	if access == nil {
		return nil, errs.NewValueIsRequiredError("role access")
	}
	if now == nil {
		now = time.Now
	}
	return &RecordInspectionCommandHandler{
		inspections: inspections,
		access:      access,
		logger:      logger.With("component", "inspections"),
		now:         now,
	}, nil
}

func (h *RecordInspectionCommandHandler) Handle(ctx context.Context, cmd RecordInspectionCommand) (ports.InspectionOutcome, error) {
	if err := cmd.Validate(); err != nil {
		return ports.InspectionOutcome{}, err
	}
	actor := cmd.Actor()
	if actor.Role != kernel.RoleSystem && !h.access.RoleHasAccess(actor.Role, ResourceInspection, ActionRecord) {
		return ports.InspectionOutcome{}, &errs.WorkflowError{
			Kind:    errs.KindAuthorization,
			Check:   errs.CheckRole,
			Message: fmt.Sprintf("role %s may not record inspection results", actor.Role),
		}
	}

	outcome := ports.InspectionOutcome{
		LotReference: cmd.LotReference(),
		Passed:       cmd.Passed(),
		Inspector:    actor.ID,
		Notes:        cmd.Notes(),
		RecordedAt:   h.now(),
	}
	if err := h.inspections.Save(ctx, outcome); err != nil {
		return ports.InspectionOutcome{}, err
	}

	h.logger.InfoContext(ctx, "inspection recorded",
		"lot", outcome.LotReference,
		"passed", outcome.Passed,
		"inspector", outcome.Inspector,
	)
	return outcome, nil
}
