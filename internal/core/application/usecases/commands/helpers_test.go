package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/adapters/out/memory"
	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/domain/model/header"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/transition"
	"tradeflow/internal/core/domain/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return baseTime }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type uowFactory struct {
	inner *memory.UnitOfWorkFactory
}

func (f uowFactory) Create() commands.UoW { return f.inner.Create() }

type allowAll struct{}

func (allowAll) RoleHasAccess(kernel.Role, string, string) bool { return true }

type notification struct {
	Target  string
	Event   string
	Payload map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, target, event string, payload map[string]any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, notification{Target: target, Event: event, Payload: payload})
	return nil
}

func (n *recordingNotifier) events(event string) []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification
	for _, s := range n.sent {
		if s.Event == event {
			out = append(out, s)
		}
	}
	return out
}

type env struct {
	store     *memory.Store
	factory   uowFactory
	notifier  *recordingNotifier
	credit    *memory.CreditLedger
	validator *services.Validator
	executor  *commands.TransitionItemCommandHandler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.NewStore()
	e := &env{
		store:    store,
		factory:  uowFactory{inner: memory.NewUnitOfWorkFactory(store)},
		notifier: &recordingNotifier{},
		credit:   memory.NewCreditLedger(),
	}
	table, err := transition.Default()
	require.NoError(t, err)
	e.validator, err = services.NewValidator(table, allowAll{}, services.NewPreconditions(e.credit))
	require.NoError(t, err)
	runner := commands.NewSideEffectRunner(e.factory, e.notifier, discardLogger(), fixedClock)
	e.executor, err = commands.NewTransitionItemCommandHandler(e.factory, e.validator, runner, discardLogger(), fixedClock)
	require.NoError(t, err)
	return e
}

// seed stores an item in state with an optional price and a header for customer.
func (e *env) seed(t *testing.T, kind item.Kind, state item.State, price string) *item.Item {
	t.Helper()
	hdr, err := header.NewHeader(kernel.NewUUID(), kind, "DOC-1", "CUST-ACME", time.Time{}, actor(kernel.RoleSalesExecutive), baseTime)
	require.NoError(t, err)
	require.NoError(t, e.factory.Create().HeaderRepository().Add(context.Background(), hdr))

	p := item.RestoreParams{
		ID:             kernel.NewUUID(),
		Kind:           kind,
		HeaderID:       hdr.ID(),
		ProductID:      "VALVE-DN50",
		Quantity:       10,
		State:          state,
		StateEnteredAt: baseTime,
		OwnerID:        "u-owner",
		Version:        1,
	}
	if price != "" {
		d := decimal.RequireFromString(price)
		p.UnitPrice = &d
		p.Currency = "USD"
	}
	it, err := item.RestoreItem(p)
	require.NoError(t, err)
	e.store.SeedItem(it)
	return it
}

func (e *env) get(t *testing.T, id kernel.UUID) *item.Item {
	t.Helper()
	it, err := e.factory.Create().ItemRepository().Get(context.Background(), id)
	require.NoError(t, err)
	return it
}

func (e *env) transition(t *testing.T, id kernel.UUID, to item.State, a kernel.Actor, justification string) (commands.TransitionResult, error) {
	t.Helper()
	cmd, err := commands.NewTransitionItemCommand(id, to, a, justification)
	require.NoError(t, err)
	return e.executor.Handle(context.Background(), cmd)
}

func actor(role kernel.Role) kernel.Actor {
	return kernel.Actor{ID: "u-" + string(role), Role: role}
}

var errNotifierDown = errors.New("notification service unavailable")
