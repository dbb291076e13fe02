package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/adapters/out/memory"
	"tradeflow/internal/core/application/orchestrator"
	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/domain/model/supplier"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/domain/services"
	"tradeflow/internal/core/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	product  = "VALVE-DN50"
	customer = "CUST-ACME"
)

var (
	baseTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	salesRep = kernel.Actor{ID: "u-sales", Role: kernel.RoleSalesExecutive}
	director = kernel.Actor{ID: "u-director", Role: kernel.RoleDirector}
)

func fixedClock() time.Time { return baseTime }

type uowFactory struct {
	inner *memory.UnitOfWorkFactory
}

func (f uowFactory) Create() commands.UoW { return f.inner.Create() }

type allowAll struct{}

func (allowAll) RoleHasAccess(kernel.Role, string, string) bool { return true }

type switchableNotifier struct {
	mu   sync.Mutex
	fail error
	sent int
}

func (n *switchableNotifier) Notify(context.Context, string, string, map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent++
	return nil
}

// flakyRecords fails the next write of one record kind, simulating a
// database hiccup between a stock movement and its record.
type flakyRecords struct {
	inner    orchestrator.RecordCreator
	mu       sync.Mutex
	failKind record.Kind
}

func (f *flakyRecords) failNext(kind record.Kind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failKind = kind
}

func (f *flakyRecords) Handle(ctx context.Context, cmd commands.CreateRecordCommand) (*record.Record, error) {
	f.mu.Lock()
	fail := f.failKind != "" && f.failKind == cmd.Kind()
	if fail {
		f.failKind = ""
	}
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection reset by peer")
	}
	return f.inner.Handle(ctx, cmd)
}

type harness struct {
	store       *memory.Store
	factory     *memory.UnitOfWorkFactory
	credit      *memory.CreditLedger
	vendors     *memory.VendorDirectory
	inspections *memory.InspectionRepository
	activity    *memory.ActivityLog
	notifier    *switchableNotifier
	recorder    *flakyRecords
	executor    *commands.TransitionItemCommandHandler
	orch        *orchestrator.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	h := &harness{
		store:       store,
		factory:     memory.NewUnitOfWorkFactory(store),
		credit:      memory.NewCreditLedger(),
		vendors:     memory.NewVendorDirectory(),
		inspections: memory.NewInspectionRepository(),
		activity:    memory.NewActivityLog(),
		notifier:    &switchableNotifier{},
	}
	h.credit.SetAvailable(customer, decimal.NewFromInt(100000), "USD")
	h.vendors.Add(supplier.Vendor{
		ID:           "V-STEELCO",
		Name:         "Steelco",
		ProductID:    product,
		UnitCost:     decimal.NewFromInt(80),
		Currency:     "USD",
		LeadTimeDays: 7,
		Approved:     true,
	})

	cmdFactory := uowFactory{inner: h.factory}
	table, err := transition.Default()
	require.NoError(t, err)
	validator, err := services.NewValidator(table, allowAll{}, services.NewPreconditions(h.credit))
	require.NoError(t, err)
	runner := commands.NewSideEffectRunner(cmdFactory, h.notifier, logger, fixedClock)
	h.executor, err = commands.NewTransitionItemCommandHandler(cmdFactory, validator, runner, logger, fixedClock)
	require.NoError(t, err)
	documents, err := commands.NewSubmitDocumentCommandHandler(cmdFactory, logger, fixedClock)
	require.NoError(t, err)
	linker, err := commands.NewLinkOrderItemCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	pricer, err := commands.NewPriceItemCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	records, err := commands.NewCreateRecordCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	h.recorder = &flakyRecords{inner: records}
	issuer, err := commands.NewIssuePurchaseOrderCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)

	h.orch, err = orchestrator.New(orchestrator.Deps{
		Items:       h.factory,
		Validator:   validator,
		Executor:    h.executor,
		Documents:   documents,
		Linker:      linker,
		Pricer:      pricer,
		Records:     h.recorder,
		POIssuer:    issuer,
		Inventory:   store.Inventory(),
		Vendors:     h.vendors,
		Inspections: h.inspections,
		Activity:    h.activity,
		Logger:      logger,
		Clock:       fixedClock,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) stock(onHand int) {
	h.store.Inventory().SetOnHand(product, onHand)
}

func (h *harness) run(t *testing.T, rc orchestrator.RunContext, opts orchestrator.Options) orchestrator.RunResult {
	t.Helper()
	res, _, err := h.orch.Run(context.Background(), rc, opts)
	require.NoError(t, err)
	return res
}

func (h *harness) item(t *testing.T, id *kernel.UUID) *item.Item {
	t.Helper()
	require.NotNil(t, id)
	it, err := h.factory.Create().ItemRepository().Get(context.Background(), *id)
	require.NoError(t, err)
	return it
}

func (h *harness) records(t *testing.T, itemID *kernel.UUID, kind record.Kind) []*record.Record {
	t.Helper()
	require.NotNil(t, itemID)
	recs, err := h.factory.Create().RecordRepository().ListByItem(context.Background(), *itemID, kind)
	require.NoError(t, err)
	return recs
}

func (h *harness) transition(t *testing.T, id *kernel.UUID, to item.State, actor kernel.Actor, justification string) {
	t.Helper()
	cmd, err := commands.NewTransitionItemCommand(*id, to, actor, justification)
	require.NoError(t, err)
	_, err = h.executor.Handle(context.Background(), cmd)
	require.NoError(t, err)
}

func (h *harness) events(t *testing.T, runID string, phase orchestrator.Phase) []string {
	t.Helper()
	entries, err := h.activity.List(context.Background(), runID)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if e.Phase == string(phase) {
			out = append(out, e.Event)
		}
	}
	return out
}

func newRun(quantity int) orchestrator.RunContext {
	price := decimal.NewFromInt(100)
	return orchestrator.RunContext{
		CustomerRef: customer,
		ProductID:   product,
		Quantity:    quantity,
		Currency:    "USD",
		UnitPrice:   &price,
	}
}

func autoOptions() orchestrator.Options {
	opts := orchestrator.DefaultOptions(salesRep, director)
	opts.AutoApproveQualification = true
	opts.AutoApprovePricing = true
	opts.AutoAcceptQuote = true
	opts.AutoApprovePO = true
	opts.AutoPassQC = true
	opts.AutoSettle = true
	return opts
}

func codes(entries []orchestrator.LedgerEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Code)
	}
	return out
}

func saveOutcome(t *testing.T, h *harness, lot string, passed bool, notes string) {
	t.Helper()
	require.NoError(t, h.inspections.Save(context.Background(), ports.InspectionOutcome{
		LotReference: lot,
		Passed:       passed,
		Inspector:    "u-qc",
		Notes:        notes,
		RecordedAt:   baseTime,
	}))
}
