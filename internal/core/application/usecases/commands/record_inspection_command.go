package commands

import (
	"errors"
	"strings"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"
	"tradeflow/internal/pkg/guard"
)

var ErrRecordInspectionCommandIsNotConstructed = errors.New(
	"RecordInspectionCommand must be created via NewRecordInspectionCommand constructor",
)

// RecordInspectionCommand stores the QC verdict for one received lot. Runs
// paused at receipt and inspection pick the verdict up on resume.
type RecordInspectionCommand struct {
	lotReference string
	passed       bool
	notes        string
	actor        kernel.Actor

	guard guard.ConstructorGuard
}

func NewRecordInspectionCommand(lotReference string, passed bool, notes string, actor kernel.Actor) (RecordInspectionCommand, error) {
	var lotErr error
	lotReference = strings.TrimSpace(lotReference)
	if lotReference == "" {
		lotErr = errs.NewValueIsRequiredError("lot reference")
	}
	if err := errors.Join(lotErr, actor.Validate()); err != nil {
		return RecordInspectionCommand{}, err
	}
	return RecordInspectionCommand{
		lotReference: lotReference,
		passed:       passed,
		notes:        notes,
		actor:        actor,
		guard:        guard.NewConstructorGuard(),
	}, nil
}

func (c RecordInspectionCommand) LotReference() string { return c.lotReference }
func (c RecordInspectionCommand) Passed() bool         { return c.passed }
func (c RecordInspectionCommand) Notes() string        { return c.notes }
func (c RecordInspectionCommand) Actor() kernel.Actor  { return c.actor }

func (c RecordInspectionCommand) Validate() error {
	return c.guard.Validate(ErrRecordInspectionCommandIsNotConstructed)
}
