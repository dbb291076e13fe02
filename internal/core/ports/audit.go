package ports

import (
	"context"
	"encoding/json"
	"time"
)

// Audit actions.
const (
	AuditActionCreate     = "CREATE"
	AuditActionUpdate     = "UPDATE"
	AuditActionTransition = "TRANSITION"
	AuditActionDelete     = "DELETE"
)

// AuditEntry is one row of the append-only audit log.
type AuditEntry struct {
	Table     string
	RecordID  string
	Action    string
	OldData   json.RawMessage
	NewData   json.RawMessage
	ActorID   string
	Timestamp time.Time
	Reason    string
}

// AuditRepository appends audit rows inside the caller's transaction.
type AuditRepository interface {
	Append(ctx context.Context, entry AuditEntry) error
	ListByRecord(ctx context.Context, table, recordID string) ([]AuditEntry, error)
}

// ActivityEntry is a human-readable line in a run's activity log.
type ActivityEntry struct {
	RunID   string
	Phase   string
	Event   string
	Message string
	At      time.Time
}

// Activity events.
const (
	ActivityStarted   = "STARTED"
	ActivityCompleted = "COMPLETED"
	ActivitySkipped   = "SKIPPED"
	ActivityPaused    = "PAUSED"
	ActivityFailed    = "FAILED"
)

// ActivityLog records every phase transition of a workflow run. Writes are
// independent of any item transaction.
type ActivityLog interface {
	Append(ctx context.Context, entry ActivityEntry) error
	List(ctx context.Context, runID string) ([]ActivityEntry, error)
}
