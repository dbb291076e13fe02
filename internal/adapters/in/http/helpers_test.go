package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpin "tradeflow/internal/adapters/in/http"
	"tradeflow/internal/adapters/out/memory"
	"tradeflow/internal/adapters/out/notify"
	"tradeflow/internal/adapters/out/rbac"
	"tradeflow/internal/core/application/orchestrator"
	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/application/usecases/queries"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/supplier"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/domain/services"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	product  = "VALVE-DN50"
	customer = "CUST-ACME"
)

var baseTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return baseTime }

type uowFactory struct {
	inner *memory.UnitOfWorkFactory
}

func (f uowFactory) Create() commands.UoW { return f.inner.Create() }

type env struct {
	echo  *echo.Echo
	store *memory.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	factory := memory.NewUnitOfWorkFactory(store)
	cmdFactory := uowFactory{inner: factory}

	credit := memory.NewCreditLedger()
	credit.SetAvailable(customer, decimal.NewFromInt(100000), "USD")
	vendors := memory.NewVendorDirectory(supplier.Vendor{
		ID: "V-STEELCO", Name: "Steelco", ProductID: product,
		UnitCost: decimal.NewFromInt(80), Currency: "USD", LeadTimeDays: 7, Approved: true,
	})
	inspections := memory.NewInspectionRepository()
	notifier := notify.NewLogNotifier(logger)

	catalog, err := rbac.Default()
	require.NoError(t, err)
	table, err := transition.Default()
	require.NoError(t, err)
	validator, err := services.NewValidator(table, catalog, services.NewPreconditions(credit))
	require.NoError(t, err)

	runner := commands.NewSideEffectRunner(cmdFactory, notifier, logger, fixedClock)
	executor, err := commands.NewTransitionItemCommandHandler(cmdFactory, validator, runner, logger, fixedClock)
	require.NoError(t, err)
	documents, err := commands.NewSubmitDocumentCommandHandler(cmdFactory, logger, fixedClock)
	require.NoError(t, err)
	deletes, err := commands.NewDeleteItemCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	linker, err := commands.NewLinkOrderItemCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	pricer, err := commands.NewPriceItemCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	records, err := commands.NewCreateRecordCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	issuer, err := commands.NewIssuePurchaseOrderCommandHandler(cmdFactory, fixedClock)
	require.NoError(t, err)
	recorder, err := commands.NewRecordInspectionCommandHandler(inspections, catalog, logger, fixedClock)
	require.NoError(t, err)
	sweeper, err := commands.NewSweepSLACommandHandler(cmdFactory, notifier, commands.SLAPolicy{
		WarningThreshold: 4 * time.Hour,
	}, logger, fixedClock)
	require.NoError(t, err)
	next, err := queries.NewListLegalNextQueryHandler(factory, validator)
	require.NoError(t, err)

	orch, err := orchestrator.New(orchestrator.Deps{
		Items:       factory,
		Validator:   validator,
		Executor:    executor,
		Documents:   documents,
		Linker:      linker,
		Pricer:      pricer,
		Records:     records,
		POIssuer:    issuer,
		Inventory:   store.Inventory(),
		Vendors:     vendors,
		Inspections: inspections,
		Activity:    memory.NewActivityLog(),
		Logger:      logger,
		Clock:       fixedClock,
	})
	require.NoError(t, err)

	server, err := httpin.NewServer(httpin.Handlers{
		Documents:   documents,
		Transitions: executor,
		Deletes:     deletes,
		Inspections: recorder,
		Sweeps:      sweeper,
		NextStates:  next,
		OpenItems:   queries.NewSourceGetOpenItemsQueryHandler(store),
		Runs:        orch,
		Access:      catalog,
	}, logger)
	require.NoError(t, err)

	e := echo.New()
	server.Register(e)
	return &env{echo: e, store: store}
}

func as(actor kernel.Actor) http.Header {
	h := http.Header{}
	h.Set(httpin.HeaderActorID, actor.ID)
	h.Set(httpin.HeaderActorRole, string(actor.Role))
	return h
}

func (e *env) do(t *testing.T, method, path string, headers http.Header, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
