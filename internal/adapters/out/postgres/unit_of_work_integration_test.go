package postgres_test

import (
	"context"
	"testing"
	"time"

	postgres_adapter "tradeflow/internal/adapters/out/postgres"
	"tradeflow/internal/core/domain/model/header"
	"tradeflow/internal/core/domain/model/item"
	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/core/domain/model/record"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

var (
	seller = kernel.Actor{ID: "u-sales", Role: kernel.RoleSalesExecutive}
	t0     = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
)

// UnitOfWorkIntegrationTestSuite exercises the unit of work and the item,
// header, record and audit repositories against a real PostgreSQL database.
type UnitOfWorkIntegrationTestSuite struct {
	databaseSuite
	factory ports.UnitOfWorkFactory
}

func (s *UnitOfWorkIntegrationTestSuite) SetupSuite() {
	s.databaseSuite.SetupSuite()
	s.factory = postgres_adapter.NewGormUnitOfWorkFactory(s.db)
}

func (s *UnitOfWorkIntegrationTestSuite) SetupTest() {
	s.truncate("items", "headers", "records", "audit_log")
}

func (s *UnitOfWorkIntegrationTestSuite) newHeader(kind item.Kind) *header.Header {
	h, err := header.NewHeader(kernel.NewUUID(), kind, "RFQ-2025-0042", "CUST-ACME", time.Time{}, seller, t0)
	s.Require().NoError(err)
	return h
}

// storeItem persists a header and one item of kind, then forces the row into
// state with plain SQL.
func (s *UnitOfWorkIntegrationTestSuite) storeItem(kind item.Kind, state item.State) *item.Item {
	ctx := context.Background()
	h := s.newHeader(kind)
	it, err := item.NewItem(kernel.NewUUID(), kind, h.ID(), "VALVE-DN50", 10, seller, t0)
	s.Require().NoError(err)

	uow := s.factory.Create()
	s.Require().NoError(uow.Begin(ctx))
	s.Require().NoError(uow.HeaderRepository().Add(ctx, h))
	s.Require().NoError(uow.ItemRepository().Add(ctx, it))
	s.Require().NoError(uow.Commit(ctx))

	if state != it.State() {
		s.Require().NoError(s.db.Exec("UPDATE items SET state = ? WHERE id = ?", string(state), it.ID().Bytes()).Error)
	}
	stored, err := s.factory.Create().ItemRepository().Get(ctx, it.ID())
	s.Require().NoError(err)
	return stored
}

func (s *UnitOfWorkIntegrationTestSuite) TestFactoryCreatesIndependentInstances() {
	uow1 := s.factory.Create()
	uow2 := s.factory.Create()

	s.NotSame(uow1, uow2)
	s.NotNil(uow1.ItemRepository())
	s.NotNil(uow1.HeaderRepository())
	s.NotNil(uow2.RecordRepository())
	s.NotNil(uow2.AuditRepository())
}

func (s *UnitOfWorkIntegrationTestSuite) TestTransactionLifecycle() {
	ctx := context.Background()
	uow := s.factory.Create()

	s.Require().NoError(uow.Begin(ctx))
	s.Require().NoError(uow.Begin(ctx), "second Begin reuses the open transaction")
	s.Require().NoError(uow.Commit(ctx))

	s.Require().NoError(uow.Begin(ctx))
	s.Require().NoError(uow.Rollback(ctx))

	s.Error(uow.Commit(ctx), "commit without a transaction")
	s.Error(uow.Rollback(ctx), "rollback without a transaction")
}

func (s *UnitOfWorkIntegrationTestSuite) TestCommitPersistsAcrossRepositories() {
	ctx := context.Background()
	h := s.newHeader(item.KindRFQItem)
	it, err := item.NewItem(kernel.NewUUID(), item.KindRFQItem, h.ID(), "VALVE-DN50", 10, seller, t0)
	s.Require().NoError(err)

	uow := s.factory.Create()
	s.Require().NoError(uow.Begin(ctx))
	s.Require().NoError(uow.HeaderRepository().Add(ctx, h))
	s.Require().NoError(uow.ItemRepository().Add(ctx, it))
	s.Require().NoError(uow.AuditRepository().Append(ctx, ports.AuditEntry{
		Table:     "items",
		RecordID:  it.ID().String(),
		Action:    ports.AuditActionCreate,
		NewData:   []byte(`{"state":"DRAFT"}`),
		ActorID:   seller.ID,
		Timestamp: t0,
	}))
	s.Require().NoError(uow.Commit(ctx))

	fresh := s.factory.Create()
	gotHeader, err := fresh.HeaderRepository().Get(ctx, h.ID())
	s.Require().NoError(err)
	s.Equal("CUST-ACME", gotHeader.CustomerRef())

	got, err := fresh.ItemRepository().Get(ctx, it.ID())
	s.Require().NoError(err)
	s.Equal(item.StateDraft, got.State())
	s.Equal(int64(1), got.Version())
	s.True(got.Audit().CreatedAt.Equal(t0))

	entries, err := fresh.AuditRepository().ListByRecord(ctx, "items", it.ID().String())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(ports.AuditActionCreate, entries[0].Action)
	s.JSONEq(`{"state":"DRAFT"}`, string(entries[0].NewData))
}

func (s *UnitOfWorkIntegrationTestSuite) TestRollbackDiscardsEverything() {
	ctx := context.Background()
	h := s.newHeader(item.KindOrderItem)
	it, err := item.NewItem(kernel.NewUUID(), item.KindOrderItem, h.ID(), "PUMP-7", 2, seller, t0)
	s.Require().NoError(err)

	uow := s.factory.Create()
	s.Require().NoError(uow.Begin(ctx))
	s.Require().NoError(uow.HeaderRepository().Add(ctx, h))
	s.Require().NoError(uow.ItemRepository().Add(ctx, it))
	s.Require().NoError(uow.Rollback(ctx))

	_, err = s.factory.Create().ItemRepository().Get(ctx, it.ID())
	s.ErrorIs(err, errs.ErrObjectNotFound)
}

func (s *UnitOfWorkIntegrationTestSuite) TestUpdateBumpsVersion() {
	ctx := context.Background()
	it := s.storeItem(item.KindRFQItem, item.StatePricing)
	s.Require().NoError(it.SetPricing(decimal.RequireFromString("12.50"), "USD", seller, t0.Add(time.Hour)))

	s.Require().NoError(s.factory.Create().ItemRepository().Update(ctx, it))
	s.Equal(int64(2), it.Version())

	got, err := s.factory.Create().ItemRepository().Get(ctx, it.ID())
	s.Require().NoError(err)
	s.Equal(int64(2), got.Version())
	s.Require().NotNil(got.UnitPrice())
	s.True(got.UnitPrice().Equal(decimal.RequireFromString("12.50")))
	s.Equal("USD", got.Currency())
}

func (s *UnitOfWorkIntegrationTestSuite) TestUpdateWithStaleVersionIsRejected() {
	ctx := context.Background()
	stored := s.storeItem(item.KindOrderItem, item.StateConfirmed)

	first := stored.Clone()
	second := stored.Clone()
	s.Require().NoError(first.AssignOwner("u-a", seller, t0))
	s.Require().NoError(second.AssignOwner("u-b", seller, t0))

	s.Require().NoError(s.factory.Create().ItemRepository().Update(ctx, first))
	err := s.factory.Create().ItemRepository().Update(ctx, second)

	s.ErrorIs(err, errs.ErrConcurrentModification)
	s.True(errs.IsRetryable(err))

	got, err := s.factory.Create().ItemRepository().Get(ctx, stored.ID())
	s.Require().NoError(err)
	s.Equal("u-a", got.OwnerID())
}

func (s *UnitOfWorkIntegrationTestSuite) TestUpdateOfClosedItemIsImmutable() {
	ctx := context.Background()
	for _, tc := range []struct {
		kind  item.Kind
		state item.State
	}{
		{item.KindRFQItem, item.StateRFQClosed},
		{item.KindRFQItem, item.StateForceClosed},
		{item.KindOrderItem, item.StateClosed},
		{item.KindOrderItem, item.StateForceClosed},
	} {
		s.Run(string(tc.state), func() {
			closed := s.storeItem(tc.kind, tc.state)
			// The aggregate refuses mutation itself, so restore a copy that
			// believes it is still open to reach the repository guard.
			stale, err := item.RestoreItem(item.RestoreParams{
				ID:             closed.ID(),
				Kind:           closed.Kind(),
				HeaderID:       closed.HeaderID(),
				ProductID:      closed.ProductID(),
				Quantity:       closed.Quantity(),
				State:          item.InitialState(tc.kind),
				StateEnteredAt: t0,
				OwnerID:        "u-late",
				Audit:          closed.Audit(),
				Version:        closed.Version(),
			})
			s.Require().NoError(err)

			err = s.factory.Create().ItemRepository().Update(ctx, stale)

			kind, ok := errs.KindOf(err)
			s.Require().True(ok, "got %v", err)
			s.Equal(errs.KindImmutableItem, kind)

			got, err := s.factory.Create().ItemRepository().Get(ctx, closed.ID())
			s.Require().NoError(err)
			s.Equal(tc.state, got.State())
			s.Equal(seller.ID, got.OwnerID())
		})
	}
}

func (s *UnitOfWorkIntegrationTestSuite) TestTriggerBlocksDirectWritesToClosedItems() {
	closed := s.storeItem(item.KindOrderItem, item.StateClosed)

	err := s.db.Exec("UPDATE items SET owner_id = 'u-dba' WHERE id = ?", closed.ID().Bytes()).Error
	s.Require().Error(err)
	s.Contains(err.Error(), "IMMUTABLE_ITEM")

	err = s.db.Exec("DELETE FROM items WHERE id = ?", closed.ID().Bytes()).Error
	s.Require().Error(err)
	s.Contains(err.Error(), "IMMUTABLE_ITEM")

	open := s.storeItem(item.KindOrderItem, item.StateInvoiced)
	s.NoError(s.db.Exec("UPDATE items SET owner_id = 'u-dba' WHERE id = ?", open.ID().Bytes()).Error)
}

func (s *UnitOfWorkIntegrationTestSuite) TestAuditLogIsAppendOnly() {
	ctx := context.Background()
	s.Require().NoError(s.factory.Create().AuditRepository().Append(ctx, ports.AuditEntry{
		Table:     "items",
		RecordID:  "x",
		Action:    ports.AuditActionDelete,
		ActorID:   seller.ID,
		Timestamp: t0,
	}))

	s.Error(s.db.Exec("UPDATE audit_log SET actor_id = 'u-dba'").Error)
	s.Error(s.db.Exec("DELETE FROM audit_log").Error)
}

func (s *UnitOfWorkIntegrationTestSuite) TestListOpenWithDeadline() {
	ctx := context.Background()
	due := t0.Add(24 * time.Hour)

	withDeadline := s.storeItem(item.KindRFQItem, item.StateTechReview)
	s.Require().NoError(s.db.Exec("UPDATE items SET sla_due_at = ? WHERE id = ?", due, withDeadline.ID().Bytes()).Error)

	orderWithDeadline := s.storeItem(item.KindOrderItem, item.StateConfirmed)
	s.Require().NoError(s.db.Exec("UPDATE items SET sla_due_at = ? WHERE id = ?", due, orderWithDeadline.ID().Bytes()).Error)

	deleted := s.storeItem(item.KindRFQItem, item.StateTechReview)
	s.Require().NoError(s.db.Exec("UPDATE items SET sla_due_at = ?, deleted_at = ? WHERE id = ?", due, t0, deleted.ID().Bytes()).Error)

	s.storeItem(item.KindRFQItem, item.StateDraft)

	rfq := item.KindRFQItem
	items, err := s.factory.Create().ItemRepository().ListOpenWithDeadline(ctx, &rfq)
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal(withDeadline.ID(), items[0].ID())
	s.Require().NotNil(items[0].SLA().DueAt)
	s.True(items[0].SLA().DueAt.Equal(due))

	all, err := s.factory.Create().ItemRepository().ListOpenWithDeadline(ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *UnitOfWorkIntegrationTestSuite) TestRecords() {
	ctx := context.Background()
	it := s.storeItem(item.KindOrderItem, item.StateProcurement)
	repo := s.factory.Create().RecordRepository()

	po, err := record.NewRecord(record.KindPurchaseOrder, it.ID(), record.Params{
		HeaderID:   it.HeaderID(),
		Quantity:   10,
		Amount:     decimal.RequireFromString("95.00"),
		Currency:   "USD",
		Status:     record.StatusDraft,
		Attributes: map[string]string{record.AttrVendorID: "V-ACME"},
	}, seller, t0)
	s.Require().NoError(err)
	s.Require().NoError(repo.Add(ctx, po))

	receipt, err := record.NewRecord(record.KindGoodsReceipt, it.ID(), record.Params{Quantity: 10}, seller, t0.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(repo.Add(ctx, receipt))

	s.Require().NoError(po.Issue())
	s.Require().NoError(repo.UpdateStatus(ctx, po))

	got, err := repo.Get(ctx, po.ID())
	s.Require().NoError(err)
	s.Equal(record.StatusIssued, got.Status())
	s.Equal("V-ACME", got.Attribute(record.AttrVendorID))
	s.True(got.Amount().Equal(decimal.RequireFromString("95")))

	all, err := repo.ListByItem(ctx, it.ID(), "")
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(record.KindPurchaseOrder, all[0].Kind())
	s.Equal(record.KindGoodsReceipt, all[1].Kind())

	pos, err := repo.ListByItem(ctx, it.ID(), record.KindPurchaseOrder)
	s.Require().NoError(err)
	s.Len(pos, 1)

	missing, err := record.NewRecord(record.KindInvoice, it.ID(), record.Params{}, seller, t0)
	s.Require().NoError(err)
	s.ErrorIs(repo.UpdateStatus(ctx, missing), errs.ErrObjectNotFound)
}

func TestUnitOfWorkIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(UnitOfWorkIntegrationTestSuite))
}
