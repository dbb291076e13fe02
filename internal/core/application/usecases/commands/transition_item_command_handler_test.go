package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tradeflow/internal/core/application/usecases/commands"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransitionItemCommand(t *testing.T) {
	_, err := commands.NewTransitionItemCommand(kernel.UUID{}, item.StateWon, actor(kernel.RoleSalesManager), "")
	require.Error(t, err)

	_, err = commands.NewTransitionItemCommand(kernel.NewUUID(), "", actor(kernel.RoleSalesManager), "")
	require.ErrorIs(t, err, errs.ErrValueIsRequired)

	cmd, err := commands.NewTransitionItemCommand(kernel.NewUUID(), item.StateWon, actor(kernel.RoleSalesManager), "  po received  ")
	require.NoError(t, err)
	assert.Equal(t, "po received", cmd.Justification())
	require.NoError(t, cmd.Validate())

	require.ErrorIs(t, commands.TransitionItemCommand{}.Validate(), commands.ErrTransitionItemCommandIsNotConstructed)
}

func TestTransitionItem_AppliesEdge(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindRFQItem, item.StateDraft, "")

	result, err := e.transition(t, it.ID(), item.StateRFQSubmitted, actor(kernel.RoleSalesExecutive), "")
	require.NoError(t, err)

	assert.Equal(t, item.StateDraft, result.From)
	assert.Equal(t, item.StateRFQSubmitted, result.To)
	assert.Equal(t, baseTime, result.EnteredAt)
	require.NotNil(t, result.DueAt)
	assert.Equal(t, baseTime.Add(24*time.Hour), *result.DueAt)
	assert.Equal(t, int64(2), result.Version)
	require.Len(t, result.SideEffects, 1)
	assert.True(t, result.SideEffects[0].Success)

	stored := e.get(t, it.ID())
	assert.Equal(t, item.StateRFQSubmitted, stored.State())
	assert.Equal(t, int64(2), stored.Version())

	sent := e.notifier.events("RFQ_SUBMITTED")
	require.Len(t, sent, 1)
	assert.Equal(t, string(kernel.RoleTechnicalEngineer), sent[0].Target)

	var transitions []ports.AuditEntry
	for _, entry := range e.store.AuditEntries() {
		if entry.Action == ports.AuditActionTransition {
			transitions = append(transitions, entry)
		}
	}
	require.Len(t, transitions, 1)
	assert.Equal(t, it.ID().String(), transitions[0].RecordID)
	assert.Equal(t, "u-SALES_EXECUTIVE", transitions[0].ActorID)
	assert.Contains(t, string(transitions[0].OldData), `"DRAFT"`)
	assert.Contains(t, string(transitions[0].NewData), `"RFQ_SUBMITTED"`)
}

func TestTransitionItem_SideEffectFailureDoesNotRollBack(t *testing.T) {
	e := newEnv(t)
	e.notifier.fail = errNotifierDown
	it := e.seed(t, item.KindRFQItem, item.StateDraft, "")

	result, err := e.transition(t, it.ID(), item.StateRFQSubmitted, actor(kernel.RoleSalesExecutive), "")
	require.NoError(t, err)

	require.Len(t, result.SideEffects, 1)
	assert.False(t, result.SideEffects[0].Success)
	assert.Contains(t, result.SideEffects[0].Detail, errNotifierDown.Error())
	assert.Equal(t, item.StateRFQSubmitted, e.get(t, it.ID()).State())
}

func TestTransitionItem_SideEffectsRunInDeclarationOrder(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindRFQItem, item.StateComplianceReview, "")

	result, err := e.transition(t, it.ID(), item.StateSourcing, actor(kernel.RoleComplianceOfficer), "")
	require.NoError(t, err)

	require.Len(t, result.SideEffects, 2)
	assert.Equal(t, "NOTIFY(SOURCING_EXECUTIVE,SOURCING_REQUESTED)", result.SideEffects[0].SideEffect)
	assert.Equal(t, "UPDATE(owner_id=SOURCING_EXECUTIVE)", result.SideEffects[1].SideEffect)

	stored := e.get(t, it.ID())
	assert.Equal(t, string(kernel.RoleSourcingExecutive), stored.OwnerID())
	assert.Equal(t, int64(3), stored.Version())
}

func TestTransitionItem_RoleGating(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindRFQItem, item.StateRFQSubmitted, "")

	_, err := e.transition(t, it.ID(), item.StateTechReview, actor(kernel.RoleSalesExecutive), "")
	require.ErrorIs(t, err, errs.ErrAuthorization)
	assert.False(t, errs.IsRetryable(err))

	reread := e.get(t, it.ID())
	assert.Equal(t, item.StateRFQSubmitted, reread.State())
	assert.Equal(t, int64(1), reread.Version())

	result, err := e.transition(t, it.ID(), item.StateTechReview, actor(kernel.RoleTechnicalEngineer), "")
	require.NoError(t, err)
	assert.Equal(t, item.StateTechReview, result.To)
}

func TestTransitionItem_RejectsWithoutMutation(t *testing.T) {
	tests := []struct {
		name          string
		kind          item.Kind
		from          item.State
		price         string
		to            item.State
		role          kernel.Role
		justification string
		wantKind      errs.Kind
		wantCheck     string
	}{
		{
			name: "undeclared edge", kind: item.KindRFQItem, from: item.StateDraft, to: item.StateQuoted,
			role: kernel.RoleDirector, wantKind: errs.KindValidation, wantCheck: errs.CheckEdge,
		},
		{
			name: "missing justification", kind: item.KindRFQItem, from: item.StateQuoted, to: item.StateLost,
			role: kernel.RoleSalesExecutive, wantKind: errs.KindValidation, wantCheck: errs.CheckJustification,
		},
		{
			name: "missing fields", kind: item.KindRFQItem, from: item.StatePricing, to: item.StatePriceApproval,
			role: kernel.RolePricingAnalyst, wantKind: errs.KindValidation, wantCheck: errs.CheckFields,
		},
		{
			name: "precondition", kind: item.KindOrderItem, from: item.StateConfirmed, to: item.StateStockReserved,
			price: "12.50", role: kernel.RoleStoresExecutive,
			wantKind: errs.KindPreconditionFailed, wantCheck: errs.CheckPrecondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			it := e.seed(t, tt.kind, tt.from, tt.price)

			_, err := e.transition(t, it.ID(), tt.to, actor(tt.role), tt.justification)
			require.Error(t, err)

			var wfErr *errs.WorkflowError
			require.ErrorAs(t, err, &wfErr)
			assert.Equal(t, tt.wantKind, wfErr.Kind)
			assert.Equal(t, tt.wantCheck, wfErr.Check)

			stored := e.get(t, it.ID())
			assert.Equal(t, tt.from, stored.State())
			assert.Equal(t, int64(1), stored.Version())
			assert.Empty(t, e.store.AuditEntries())
		})
	}
}

func TestTransitionItem_CustomerCredit(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindOrderItem, item.StateOrderCreated, "50")
	e.credit.SetAvailable("CUST-ACME", decimal.NewFromInt(100), "USD")

	_, err := e.transition(t, it.ID(), item.StateConfirmed, actor(kernel.RoleSalesManager), "")
	require.ErrorIs(t, err, errs.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "customer CUST-ACME has 100.00 USD available, order needs 500.00 USD")

	e.credit.SetAvailable("CUST-ACME", decimal.NewFromInt(1000), "USD")
	result, err := e.transition(t, it.ID(), item.StateConfirmed, actor(kernel.RoleSalesManager), "")
	require.NoError(t, err)
	assert.Equal(t, item.StateConfirmed, result.To)

	orders, err := e.factory.Create().RecordRepository().ListByItem(context.Background(), it.ID(), record.KindSalesOrder)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(orders[0].Amount()))
}

func TestTransitionItem_TerminalItemsAreImmutable(t *testing.T) {
	terminals := []struct {
		kind  item.Kind
		state item.State
	}{
		{item.KindRFQItem, item.StateRFQClosed},
		{item.KindRFQItem, item.StateForceClosed},
		{item.KindOrderItem, item.StateClosed},
		{item.KindOrderItem, item.StateForceClosed},
	}

	for _, tc := range terminals {
		t.Run(string(tc.kind)+"/"+string(tc.state), func(t *testing.T) {
			e := newEnv(t)
			it := e.seed(t, tc.kind, tc.state, "10")

			for _, role := range kernel.Roles() {
				for _, to := range item.States(tc.kind) {
					_, err := e.transition(t, it.ID(), to, actor(role), "director override")
					require.ErrorIs(t, err, errs.ErrImmutableItem, "%s -> %s as %s", tc.state, to, role)

					kind, ok := errs.KindOf(err)
					require.True(t, ok)
					assert.Equal(t, errs.KindImmutableItem, kind)
					assert.False(t, errs.IsRetryable(err))
				}
			}

			stored := e.get(t, it.ID())
			assert.Equal(t, tc.state, stored.State())
			assert.Equal(t, int64(1), stored.Version())
			assert.Empty(t, e.store.AuditEntries())
		})
	}
}

func TestTransitionItem_EmergencyClose(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindOrderItem, item.StateProcurement, "10")

	_, err := e.transition(t, it.ID(), item.StateForceClosed, actor(kernel.RoleSalesManager), "customer cancelled")
	require.ErrorIs(t, err, errs.ErrAuthorization)

	_, err = e.transition(t, it.ID(), item.StateForceClosed, actor(kernel.RoleDirector), "")
	require.ErrorIs(t, err, errs.ErrValidation)

	result, err := e.transition(t, it.ID(), item.StateForceClosed, actor(kernel.RoleDirector), "customer cancelled")
	require.NoError(t, err)
	assert.Equal(t, item.StateForceClosed, result.To)

	closed := e.notifier.events("ITEM_FORCE_CLOSED")
	require.Len(t, closed, 2)
	assert.Equal(t, "u-owner", closed[0].Target)
	assert.Equal(t, string(kernel.RoleFinanceManager), closed[1].Target)

	_, err = e.transition(t, it.ID(), item.StateForceClosed, actor(kernel.RoleManagingDirector), "again")
	require.ErrorIs(t, err, errs.ErrImmutableItem)
}

func TestTransitionItem_RejectsDeletedItems(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindRFQItem, item.StateDraft, "")

	del, err := commands.NewDeleteItemCommandHandler(e.factory, fixedClock)
	require.NoError(t, err)
	cmd, err := commands.NewDeleteItemCommand(it.ID(), actor(kernel.RoleSalesExecutive))
	require.NoError(t, err)
	require.NoError(t, del.Handle(context.Background(), cmd))

	_, err = e.transition(t, it.ID(), item.StateRFQSubmitted, actor(kernel.RoleSalesExecutive), "")
	require.ErrorIs(t, err, errs.ErrValueIsInvalid)
}

func TestTransitionItem_ItemNotFound(t *testing.T) {
	e := newEnv(t)

	_, err := e.transition(t, kernel.NewUUID(), item.StateRFQSubmitted, actor(kernel.RoleSalesExecutive), "")
	require.ErrorIs(t, err, errs.ErrObjectNotFound)
}

// racingUoW lets a competing transition commit between the executor's read
// and its commit.
type racingUoW struct {
	commands.UoW
	once   *sync.Once
	before func()
}

func (u racingUoW) Commit(ctx context.Context) error {
	u.once.Do(u.before)
	return u.UoW.Commit(ctx)
}

type racingFactory struct {
	inner  commands.UoWFactory
	once   *sync.Once
	before func()
}

func (f racingFactory) Create() commands.UoW {
	return racingUoW{UoW: f.inner.Create(), once: f.once, before: f.before}
}

func TestTransitionItem_ConcurrentModification(t *testing.T) {
	e := newEnv(t)
	it := e.seed(t, item.KindRFQItem, item.StateTechReview, "")

	competitor := func() {
		_, err := e.transition(t, it.ID(), item.StateComplianceReview, actor(kernel.RoleTechnicalEngineer), "")
		require.NoError(t, err)
	}

	runner := commands.NewSideEffectRunner(e.factory, e.notifier, discardLogger(), fixedClock)
	racing, err := commands.NewTransitionItemCommandHandler(
		racingFactory{inner: e.factory, once: &sync.Once{}, before: competitor},
		e.validator, runner, discardLogger(), fixedClock,
	)
	require.NoError(t, err)

	cmd, err := commands.NewTransitionItemCommand(it.ID(), item.StateLost, actor(kernel.RoleTechnicalManager), "out of scope")
	require.NoError(t, err)
	_, err = racing.Handle(context.Background(), cmd)
	require.ErrorIs(t, err, errs.ErrConcurrentModification)
	assert.True(t, errs.IsRetryable(err))

	reread := e.get(t, it.ID())
	assert.Equal(t, item.StateComplianceReview, reread.State())
	assert.Equal(t, int64(2), reread.Version())

	// From the re-read state only compliance may drop the line.
	_, err = e.transition(t, it.ID(), item.StateLost, actor(kernel.RoleTechnicalManager), "out of scope")
	require.ErrorIs(t, err, errs.ErrAuthorization)
	_, err = e.transition(t, it.ID(), item.StateLost, actor(kernel.RoleComplianceOfficer), "out of scope")
	require.NoError(t, err)
}
