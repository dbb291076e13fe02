package postgres

import (
	"context"
	"fmt"
	"strings"

	"tradeflow/internal/adapters/out/postgres/auditrepo"
	"tradeflow/internal/adapters/out/postgres/directoryrepo"
	"tradeflow/internal/adapters/out/postgres/headerrepo"
	"tradeflow/internal/adapters/out/postgres/inventoryrepo"
	"tradeflow/internal/adapters/out/postgres/itemrepo"
	"tradeflow/internal/adapters/out/postgres/recordrepo"
	"tradeflow/internal/core/domain/model/item"

	"gorm.io/gorm"
)

// Models lists every table the adapter owns.
func Models() []any {
	return []any{
		&headerrepo.HeaderDTO{},
		&itemrepo.ItemDTO{},
		&recordrepo.RecordDTO{},
		&auditrepo.AuditDTO{},
		&inventoryrepo.StockLevelDTO{},
		&inventoryrepo.StockMovementDTO{},
		&directoryrepo.VendorOfferDTO{},
		&directoryrepo.CreditLineDTO{},
		&directoryrepo.InspectionDTO{},
		&directoryrepo.ActivityDTO{},
	}
}

// Migrate creates the schema and installs the database-side guards: closed
// items cannot be updated or deleted and the audit log is append-only, no
// matter which client issues the statement.
func Migrate(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	for _, stmt := range guardStatements() {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("install guard: %w", err)
		}
	}
	return nil
}

func guardStatements() []string {
	states := item.AllTerminalStates()
	quoted := make([]string, 0, len(states))
	for _, s := range states {
		quoted = append(quoted, "'"+string(s)+"'")
	}
	terminal := strings.Join(quoted, ", ")

	return []string{
		`CREATE OR REPLACE FUNCTION items_reject_closed() RETURNS trigger AS $$
BEGIN
	IF OLD.state IN (` + terminal + `) THEN
		RAISE EXCEPTION 'IMMUTABLE_ITEM: item % is closed in state %', OLD.id, OLD.state
			USING ERRCODE = 'check_violation';
	END IF;
	IF TG_OP = 'DELETE' THEN
		RETURN OLD;
	END IF;
	RETURN NEW;
END;
$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS items_immutable ON items`,
		`CREATE TRIGGER items_immutable BEFORE UPDATE OR DELETE ON items
	FOR EACH ROW EXECUTE FUNCTION items_reject_closed()`,
		`CREATE OR REPLACE FUNCTION audit_log_append_only() RETURNS trigger AS $$
BEGIN
	RAISE EXCEPTION 'audit_log is append-only' USING ERRCODE = 'check_violation';
END;
$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS audit_log_append_only ON audit_log`,
		`CREATE TRIGGER audit_log_append_only BEFORE UPDATE OR DELETE ON audit_log
	FOR EACH ROW EXECUTE FUNCTION audit_log_append_only()`,
	}
}
