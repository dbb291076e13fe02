package postgres_test

import (
	"context"
	"testing"
	"time"

	"tradeflow/internal/adapters/out/postgres/directoryrepo"
	"tradeflow/internal/adapters/out/postgres/inventoryrepo"
	"tradeflow/internal/core/domain/model/supplier"
	"tradeflow/internal/core/ports"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// CollaboratorsIntegrationTestSuite covers the stock ledger and the
// reference-data stores the orchestrator reads.
type CollaboratorsIntegrationTestSuite struct {
	databaseSuite
}

func (s *CollaboratorsIntegrationTestSuite) SetupTest() {
	s.truncate("stock_levels", "stock_movements", "vendor_offers", "credit_lines", "lot_inspections", "run_activity")
}

func (s *CollaboratorsIntegrationTestSuite) TestInventoryReserveReceiveIssue() {
	ctx := context.Background()
	inv := inventoryrepo.NewGormInventory(s.db)

	available, err := inv.Available(ctx, "VALVE-DN50")
	s.Require().NoError(err)
	s.Zero(available, "unknown products have nothing available")

	s.Require().NoError(inv.SetOnHand(ctx, "VALVE-DN50", 5))
	s.Require().NoError(inv.Reserve(ctx, "VALVE-DN50", 3, "RS-1"))

	err = inv.Reserve(ctx, "VALVE-DN50", 3, "RS-2")
	s.Require().Error(err)
	s.Contains(err.Error(), "only 2 available")

	onHand, err := inv.Receive(ctx, "VALVE-DN50", 10, "GRN-1")
	s.Require().NoError(err)
	s.Equal(15, onHand)

	onHand, err = inv.Issue(ctx, "VALVE-DN50", 3, "SH-1")
	s.Require().NoError(err)
	s.Equal(12, onHand)

	_, err = inv.Issue(ctx, "VALVE-DN50", 1, "SH-2")
	s.Error(err, "nothing left reserved")

	available, err = inv.Available(ctx, "VALVE-DN50")
	s.Require().NoError(err)
	s.Equal(12, available)

	movements, err := inv.Movements(ctx, "VALVE-DN50")
	s.Require().NoError(err)
	s.Require().Len(movements, 3, "failed moves leave no ledger rows")
	s.Equal(inventoryrepo.MovementReserve, movements[0].Type)
	s.Equal(inventoryrepo.MovementIn, movements[1].Type)
	s.Equal(15, movements[1].StockAfter)
	s.Equal(inventoryrepo.MovementOut, movements[2].Type)
	s.Equal("SH-1", movements[2].Reference)
}

func (s *CollaboratorsIntegrationTestSuite) TestInventoryMovementsAreIdempotentPerReference() {
	ctx := context.Background()
	inv := inventoryrepo.NewGormInventory(s.db)

	for range 2 {
		onHand, err := inv.Receive(ctx, "VALVE-DN50", 6, "GRN-7A")
		s.Require().NoError(err)
		s.Equal(6, onHand)
		s.Require().NoError(inv.Reserve(ctx, "VALVE-DN50", 6, "GRN-7A"))
	}

	reserved, err := inv.Reserved(ctx, "VALVE-DN50", "GRN-7A")
	s.Require().NoError(err)
	s.Equal(6, reserved)
	reserved, err = inv.Reserved(ctx, "VALVE-DN50", "SO-UNKNOWN")
	s.Require().NoError(err)
	s.Zero(reserved)

	for range 2 {
		onHand, err := inv.Issue(ctx, "VALVE-DN50", 6, "SO-0042")
		s.Require().NoError(err)
		s.Zero(onHand)
	}

	movements, err := inv.Movements(ctx, "VALVE-DN50")
	s.Require().NoError(err)
	s.Len(movements, 3)

	_, err = inv.Receive(ctx, "VALVE-DN50", 1, "")
	s.ErrorIs(err, errs.ErrValueIsRequired)
}

func (s *CollaboratorsIntegrationTestSuite) TestInventoryRejectsNonPositiveQuantity() {
	_, err := inventoryrepo.NewGormInventory(s.db).Receive(context.Background(), "VALVE-DN50", 0, "GRN-0")
	s.ErrorIs(err, errs.ErrValueIsOutOfRange)
}

func (s *CollaboratorsIntegrationTestSuite) TestVendorDirectory() {
	ctx := context.Background()
	dir := directoryrepo.NewGormVendorDirectory(s.db)

	for _, v := range []supplier.Vendor{
		{ID: "V-CHEAP", Name: "Cheap", ProductID: "PUMP-7", UnitCost: decimal.RequireFromString("80"), Currency: "USD", LeadTimeDays: 20, Approved: true},
		{ID: "V-FAST", Name: "Fast", ProductID: "PUMP-7", UnitCost: decimal.RequireFromString("80"), Currency: "USD", LeadTimeDays: 5, Approved: true},
		{ID: "V-SMALL", Name: "Small", ProductID: "PUMP-7", UnitCost: decimal.RequireFromString("50"), Currency: "USD", LeadTimeDays: 5, MaxQuantity: 2, Approved: true},
		{ID: "V-NEW", Name: "Unvetted", ProductID: "PUMP-7", UnitCost: decimal.RequireFromString("10"), Currency: "USD", LeadTimeDays: 1},
	} {
		s.Require().NoError(dir.Save(ctx, v))
	}

	vendors, err := dir.FindEligible(ctx, "PUMP-7", 5)
	s.Require().NoError(err)
	s.Require().Len(vendors, 2)
	s.Equal("V-FAST", vendors[0].ID)
	s.Equal("V-CHEAP", vendors[1].ID)

	s.Require().NoError(dir.Save(ctx, supplier.Vendor{
		ID: "V-NEW", Name: "Vetted", ProductID: "PUMP-7", UnitCost: decimal.RequireFromString("10"), Currency: "USD", LeadTimeDays: 1, Approved: true,
	}))
	vendors, err = dir.FindEligible(ctx, "PUMP-7", 5)
	s.Require().NoError(err)
	s.Require().Len(vendors, 3)
	s.Equal("V-NEW", vendors[0].ID)
	s.Equal("Vetted", vendors[0].Name)

	s.Error(dir.Save(ctx, supplier.Vendor{ID: "V-BAD", ProductID: "PUMP-7"}))
}

func (s *CollaboratorsIntegrationTestSuite) TestCreditLedger() {
	ctx := context.Background()
	ledger := directoryrepo.NewGormCreditLedger(s.db)

	_, _, err := ledger.AvailableCredit(ctx, "CUST-NONE")
	s.ErrorIs(err, errs.ErrObjectNotFound)

	s.Require().NoError(ledger.SetAvailable(ctx, "CUST-ACME", decimal.RequireFromString("1000"), "USD"))
	s.Require().NoError(ledger.SetAvailable(ctx, "CUST-ACME", decimal.RequireFromString("250.50"), "USD"))

	amount, currency, err := ledger.AvailableCredit(ctx, "CUST-ACME")
	s.Require().NoError(err)
	s.True(amount.Equal(decimal.RequireFromString("250.50")))
	s.Equal("USD", currency)
}

func (s *CollaboratorsIntegrationTestSuite) TestInspections() {
	ctx := context.Background()
	repo := directoryrepo.NewGormInspectionRepository(s.db)
	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	_, found, err := repo.Find(ctx, "GRN-1")
	s.Require().NoError(err)
	s.False(found)

	s.Require().NoError(repo.Save(ctx, ports.InspectionOutcome{LotReference: "GRN-1", Passed: false, Inspector: "u-qc", Notes: "burrs", RecordedAt: at}))
	s.Require().NoError(repo.Save(ctx, ports.InspectionOutcome{LotReference: "GRN-1", Passed: true, Inspector: "u-qc2", RecordedAt: at.Add(time.Hour)}))

	got, found, err := repo.Find(ctx, "GRN-1")
	s.Require().NoError(err)
	s.Require().True(found)
	s.True(got.Passed, "re-inspection replaces the verdict")
	s.Equal("u-qc2", got.Inspector)
	s.True(got.RecordedAt.Equal(at.Add(time.Hour)))
}

func (s *CollaboratorsIntegrationTestSuite) TestActivityLog() {
	ctx := context.Background()
	log := directoryrepo.NewGormActivityLog(s.db)
	at := time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

	s.Require().NoError(log.Append(ctx, ports.ActivityEntry{RunID: "run-1", Phase: "RFQ_INTAKE", Event: ports.ActivityStarted, At: at}))
	s.Require().NoError(log.Append(ctx, ports.ActivityEntry{RunID: "run-2", Phase: "RFQ_INTAKE", Event: ports.ActivityStarted, At: at}))
	s.Require().NoError(log.Append(ctx, ports.ActivityEntry{RunID: "run-1", Phase: "RFQ_INTAKE", Event: ports.ActivityCompleted, Message: "2 items", At: at.Add(time.Second)}))

	entries, err := log.List(ctx, "run-1")
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(ports.ActivityStarted, entries[0].Event)
	s.Equal(ports.ActivityCompleted, entries[1].Event)
	s.Equal("2 items", entries[1].Message)
}

func TestCollaboratorsIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(CollaboratorsIntegrationTestSuite))
}
