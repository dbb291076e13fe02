package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/domain/services"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"
	"tradeflow/internal/pkg/metrics"
)

var (
	// ErrItemAbandoned is returned when an item the run drives has been lost,
	// force-closed or deleted by someone else.
	ErrItemAbandoned = errors.New("item left the workflow")
	// ErrUnexpectedState is returned when an item sits in a state the current
	// phase cannot continue from.
	ErrUnexpectedState = errors.New("item is in an unexpected state")
)

// TransitionExecutor applies one item transition.
type TransitionExecutor interface {
	Handle(ctx context.Context, cmd commands.TransitionItemCommand) (commands.TransitionResult, error)
}

// DocumentSubmitter creates a header and its items.
type DocumentSubmitter interface {
	Handle(ctx context.Context, cmd commands.SubmitDocumentCommand) (commands.SubmittedDocument, error)
}

// OrderLinker records which order item an RFQ item became.
type OrderLinker interface {
	Handle(ctx context.Context, cmd commands.LinkOrderItemCommand) error
}

// ItemPricer sets the unit price of an item.
type ItemPricer interface {
	Handle(ctx context.Context, cmd commands.PriceItemCommand) error
}

// RecordCreator attaches a derived record to an item.
type RecordCreator interface {
	Handle(ctx context.Context, cmd commands.CreateRecordCommand) (*record.Record, error)
}

// PurchaseOrderIssuer moves a draft purchase order to ISSUED.
type PurchaseOrderIssuer interface {
	Handle(ctx context.Context, cmd commands.IssuePurchaseOrderCommand) (*record.Record, error)
}

// Deps are the collaborators of an Orchestrator. Every field but Clock is required.
type Deps struct {
	Items       ports.UnitOfWorkFactory
	Validator   *services.Validator
	Executor    TransitionExecutor
	Documents   DocumentSubmitter
	Linker      OrderLinker
	Pricer      ItemPricer
	Records     RecordCreator
	POIssuer    PurchaseOrderIssuer
	Inventory   ports.Inventory
	Vendors     ports.VendorDirectory
	Inspections ports.InspectionRepository
	Activity    ports.ActivityLog
	Logger      *slog.Logger
	Clock       func() time.Time
}

type outcomeKind int

const (
	outcomeDone outcomeKind = iota
	outcomeSkipped
	outcomePaused
)

type outcome struct {
	kind    outcomeKind
	message string
}

func done(format string, args ...any) outcome {
	return outcome{kind: outcomeDone, message: fmt.Sprintf(format, args...)}
}

func skipped(format string, args ...any) outcome {
	return outcome{kind: outcomeSkipped, message: fmt.Sprintf(format, args...)}
}

func paused(format string, args ...any) outcome {
	return outcome{kind: outcomePaused, message: fmt.Sprintf(format, args...)}
}

// phaseFunc runs one phase on its own copy of the context and returns the
// updated copy, also when it fails, so ids created before the failure are kept
// for the next attempt.
type phaseFunc func(ctx context.Context, rc RunContext, opts Options) (RunContext, outcome, error)

type step struct {
	phase Phase
	run   phaseFunc
}

// Orchestrator drives one RFQ line from intake to a closed, paid order line.
//
// A run walks the phases in order. Each phase moves items through the
// executor, calls external collaborators such as inventory and the vendor
// directory, and folds their results into the RunContext. A phase that needs
// a human decision not covered by Options pauses the run; calling Run again
// with the returned context resumes it. Completed phases are skipped and every
// phase is idempotent on the ids and item states it finds, so a resumed run
// never creates a record twice and honours transitions people made while the
// run was paused.
//
// Errors halt the run at the failing phase and are recorded in the context's
// error ledger. Run never retries; Options.MaxRetries and RetryDelay are
// carried for the caller.
//
// Example:
//
//	opts := orchestrator.DefaultOptions(salesRep, director)
//	opts.AutoApproveQualification = true
//	res, summary, err := o.Run(ctx, orchestrator.RunContext{
//	    CustomerRef: "CUST-ACME", ProductID: "VALVE-DN50", Quantity: 10, Currency: "USD",
//	}, opts)
//	if res.Status == orchestrator.StatusRequiresAction {
//	    // store res.Context and call Run again after the human step
//	}
type Orchestrator struct {
	Deps
	selector services.VendorSelector
	logger   *slog.Logger
	steps    []step
}

func New(d Deps) (*Orchestrator, error) {
	checks := []struct {
		name    string
		missing bool
	}{
		{"items", d.Items == nil},
		{"validator", d.Validator == nil},
		{"executor", d.Executor == nil},
		{"documents", d.Documents == nil},
		{"linker", d.Linker == nil},
		{"pricer", d.Pricer == nil},
		{"records", d.Records == nil},
		{"poIssuer", d.POIssuer == nil},
		{"inventory", d.Inventory == nil},
		{"vendors", d.Vendors == nil},
		{"inspections", d.Inspections == nil},
		{"activity", d.Activity == nil},
		{"logger", d.Logger == nil},
	}
	var missing []error
	for _, c := range checks {
		if c.missing {
			missing = append(missing, errs.NewValueIsRequiredError(c.name))
		}
	}
	if err := errors.Join(missing...); err != nil {
		return nil, err
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}

	o := &Orchestrator{
		Deps:     d,
		selector: services.NewVendorSelector(),
		logger:   d.Logger.With("component", "orchestrator"),
	}
	o.steps = []step{
		{PhaseIntake, o.intake},
		{PhaseQualification, o.qualification},
		{PhaseSourcing, o.sourcing},
		{PhasePricingApproval, o.pricingApproval},
		{PhaseCustomerQuote, o.customerQuote},
		{PhaseOrderCreation, o.orderCreation},
		{PhaseStockResolution, o.stockResolution},
		{PhaseProcurement, o.procurement},
		{PhaseReceiptInspection, o.receiptInspection},
		{PhaseInventoryUpdate, o.inventoryUpdate},
		{PhaseDispatch, o.dispatch},
		{PhaseInvoicing, o.invoicing},
		{PhaseSettlement, o.settlement},
		{PhaseCompletion, o.completion},
	}
	return o, nil
}

// Run executes or resumes a run. The error is non-nil only for malformed
// input; every workflow outcome, failures included, is reported in RunResult.
// The caller's context is never modified.
func (o *Orchestrator) Run(ctx context.Context, initial RunContext, opts Options) (RunResult, Summary, error) {
	if err := errors.Join(initial.Validate(), opts.Validate()); err != nil {
		return RunResult{}, Summary{}, err
	}
	started := o.Clock()

	rc := initial.Clone()
	if rc.RunID == "" {
		rc.RunID = kernel.NewUUID().String()
	}
	if rc.Reference == "" {
		rc.Reference = "RUN-" + strings.ToUpper(strings.ReplaceAll(rc.RunID, "-", "")[:8])
	}
	if rc.StartedAt.IsZero() {
		rc.StartedAt = started
	}

	res := o.execute(ctx, rc, opts)
	metrics.WorkflowRuns.WithLabelValues(string(res.Status)).Inc()
	return res, newSummary(res, o.Clock().Sub(started), opts), nil
}

func (o *Orchestrator) execute(ctx context.Context, rc RunContext, opts Options) RunResult {
	logger := o.logger.With("run_id", rc.RunID)
	last := outcome{}

	for _, s := range o.steps {
		if rc.Completed(s.phase) {
			continue
		}
		o.log(ctx, rc.RunID, s.phase, ports.ActivityStarted, "")

		began := time.Now()
		next, out, err := s.run(ctx, rc, opts)
		metrics.WorkflowPhaseDuration.WithLabelValues(string(s.phase)).Observe(time.Since(began).Seconds())
		rc = next

		if err != nil {
			rc.fail(s.phase, errorCode(err), err.Error(), o.Clock())
			o.log(ctx, rc.RunID, s.phase, ports.ActivityFailed, err.Error())
			logger.ErrorContext(ctx, "phase failed", "phase", s.phase, "error", err)
			return RunResult{
				Status:             StatusFailed,
				Phase:              s.phase,
				LastCompletedPhase: rc.LastCompletedPhase(),
				Message:            err.Error(),
				Retryable:          errs.IsRetryable(err),
				Context:            rc,
			}
		}

		switch out.kind {
		case outcomePaused:
			o.log(ctx, rc.RunID, s.phase, ports.ActivityPaused, out.message)
			logger.InfoContext(ctx, "run paused", "phase", s.phase, "reason", out.message)
			return RunResult{
				Status:             StatusRequiresAction,
				Phase:              s.phase,
				LastCompletedPhase: rc.LastCompletedPhase(),
				Message:            out.message,
				Context:            rc,
			}
		case outcomeSkipped:
			rc.complete(s.phase)
			o.log(ctx, rc.RunID, s.phase, ports.ActivitySkipped, out.message)
			logger.InfoContext(ctx, "phase skipped", "phase", s.phase, "reason", out.message)
		default:
			rc.complete(s.phase)
			o.log(ctx, rc.RunID, s.phase, ports.ActivityCompleted, out.message)
			logger.InfoContext(ctx, "phase completed", "phase", s.phase, "message", out.message)
		}
		last = out
	}

	message := last.message
	if message == "" {
		message = "run already completed"
	}
	return RunResult{
		Status:             StatusCompleted,
		Phase:              PhaseCompletion,
		LastCompletedPhase: rc.LastCompletedPhase(),
		Message:            message,
		Context:            rc,
	}
}

// log appends to the activity log. The log is written outside any item
// transaction and a failure to write it never affects the run.
func (o *Orchestrator) log(ctx context.Context, runID string, phase Phase, event, message string) {
	if message == "" {
		message = fmt.Sprintf("%s %s", phase, strings.ToLower(event))
	}
	if err := o.Activity.Append(ctx, ports.ActivityEntry{
		RunID:   runID,
		Phase:   string(phase),
		Event:   event,
		Message: message,
		At:      o.Clock(),
	}); err != nil {
		o.logger.WarnContext(ctx, "activity log append failed", "run_id", runID, "phase", phase, "error", err)
	}
}

func unexpected(it *item.Item) error {
	return fmt.Errorf("%w: %s item %s is %s", ErrUnexpectedState, it.Kind(), it.ID(), it.State())
}

func errorCode(err error) string {
	if kind, ok := errs.KindOf(err); ok {
		return string(kind)
	}
	switch {
	case errors.Is(err, ErrItemAbandoned):
		return CodeItemAbandoned
	case errors.Is(err, ErrUnexpectedState):
		return "UNEXPECTED_STATE"
	case errors.Is(err, errs.ErrObjectNotFound):
		return "NOT_FOUND"
	default:
		return CodeInternal
	}
}

// loadItem reads the committed item. Items that were lost, force-closed or
// deleted while the run was paused end the run.
func (o *Orchestrator) loadItem(ctx context.Context, id kernel.UUID) (*item.Item, error) {
	it, err := o.Items.Create().ItemRepository().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case it.IsDeleted():
		return nil, fmt.Errorf("%w: %s item %s was deleted", ErrItemAbandoned, it.Kind(), id)
	case it.State() == item.StateLost, it.State() == item.StateForceClosed:
		return nil, fmt.Errorf("%w: %s item %s is %s", ErrItemAbandoned, it.Kind(), id, it.State())
	}
	return it, nil
}

func (o *Orchestrator) listRecords(ctx context.Context, itemID kernel.UUID, kind record.Kind) ([]*record.Record, error) {
	return o.Items.Create().RecordRepository().ListByItem(ctx, itemID, kind)
}

func (o *Orchestrator) createRecord(
	ctx context.Context,
	kind record.Kind,
	itemID kernel.UUID,
	params record.Params,
) (*record.Record, error) {
	cmd, err := commands.NewCreateRecordCommand(kind, itemID, params, kernel.SystemActor)
	if err != nil {
		return nil, err
	}
	return o.Records.Handle(ctx, cmd)
}

// adoptRecord returns the first record of kind on the item, creating it with
// params when a transition side effect did not.
func (o *Orchestrator) adoptRecord(
	ctx context.Context,
	kind record.Kind,
	itemID kernel.UUID,
	params record.Params,
) (*RecordRef, error) {
	existing, err := o.listRecords(ctx, itemID, kind)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return refOf(existing[0]), nil
	}
	rec, err := o.createRecord(ctx, kind, itemID, params)
	if err != nil {
		return nil, err
	}
	return refOf(rec), nil
}

// offPath states sort after the happy path in pipeline order but are not
// progress along it.
var offPath = []item.State{item.StateLost, item.StateQCFailed, item.StateForceClosed}

// reached reports whether it is at target or further along the happy path.
func reached(it *item.Item, target item.State) bool {
	if slices.Contains(offPath, it.State()) {
		return false
	}
	states := item.States(it.Kind())
	return slices.Index(states, it.State()) >= slices.Index(states, target)
}

// walk moves an item along path, starting from wherever it currently is on
// the path. An item already past the end of the path is left alone.
func (o *Orchestrator) walk(
	ctx context.Context,
	rc *RunContext,
	phase Phase,
	id kernel.UUID,
	actor kernel.Actor,
	path ...item.State,
) error {
	it, err := o.loadItem(ctx, id)
	if err != nil {
		return err
	}
	start := slices.Index(path, it.State())
	if start < 0 {
		if reached(it, path[len(path)-1]) {
			return nil
		}
		return fmt.Errorf("%w: %s item %s is %s, expected one of %v", ErrUnexpectedState, it.Kind(), id, it.State(), path)
	}

	from := it.State()
	for _, to := range path[start+1:] {
		if err = o.advance(ctx, rc, phase, it.Kind(), id, from, to, actor); err != nil {
			return err
		}
		from = to
	}
	return nil
}

// advance takes one edge through the executor after checking the table.
// Automatic edges always run as the system actor. Failed side effects become
// warnings.
func (o *Orchestrator) advance(
	ctx context.Context,
	rc *RunContext,
	phase Phase,
	kind item.Kind,
	id kernel.UUID,
	from, to item.State,
	actor kernel.Actor,
) error {
	if !o.Validator.IsLegal(kind, from, to) {
		return errs.NewIllegalTransitionError(string(kind), string(from), string(to))
	}
	if def, _ := o.Validator.Table().Lookup(kind, from, to); def.IsAutomatic {
		actor = kernel.SystemActor
	}

	cmd, err := commands.NewTransitionItemCommand(id, to, actor, "")
	if err != nil {
		return err
	}
	res, err := o.Executor.Handle(ctx, cmd)
	if err != nil {
		return err
	}
	for _, se := range res.SideEffects {
		if !se.Success {
			rc.warn(phase, CodeSideEffectFailed,
				fmt.Sprintf("%s -> %s: %s: %s", from, to, se.SideEffect, se.Detail), o.Clock())
		}
	}
	return nil
}

func (o *Orchestrator) selectVendor(ctx context.Context, productID string, quantity int) (*VendorSelection, error) {
	vendors, err := o.Vendors.FindEligible(ctx, productID, quantity)
	if err != nil {
		return nil, errs.NewExternalOperationError("vendor lookup", err)
	}
	v, err := o.selector.Select(vendors, quantity)
	if err != nil {
		return nil, errs.NewExternalOperationError(
			"vendor selection",
			fmt.Errorf("%d units of %s: %w", quantity, productID, err),
		)
	}
	return &VendorSelection{
		VendorID:     v.ID,
		UnitCost:     v.UnitCost,
		Currency:     v.Currency,
		LeadTimeDays: v.LeadTimeDays,
	}, nil
}
