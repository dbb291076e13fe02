package orchestrator

import (
	"time"
)

// Phase names one step of a run. Phases are not item states.
type Phase string

const (
	PhaseIntake            Phase = "request_intake"
	PhaseQualification     Phase = "internal_qualification"
	PhaseSourcing          Phase = "external_sourcing"
	PhasePricingApproval   Phase = "pricing_approval"
	PhaseCustomerQuote     Phase = "customer_quote"
	PhaseOrderCreation     Phase = "order_creation"
	PhaseStockResolution   Phase = "stock_resolution"
	PhaseProcurement       Phase = "procurement"
	PhaseReceiptInspection Phase = "receipt_inspection"
	PhaseInventoryUpdate   Phase = "inventory_update"
	PhaseDispatch          Phase = "dispatch"
	PhaseInvoicing         Phase = "invoicing"
	PhaseSettlement        Phase = "settlement"
	PhaseCompletion        Phase = "completion"
)

// Phases returns every phase in execution order.
func Phases() []Phase {
	return []Phase{
		PhaseIntake, PhaseQualification, PhaseSourcing, PhasePricingApproval,
		PhaseCustomerQuote, PhaseOrderCreation, PhaseStockResolution, PhaseProcurement,
		PhaseReceiptInspection, PhaseInventoryUpdate, PhaseDispatch, PhaseInvoicing,
		PhaseSettlement, PhaseCompletion,
	}
}

// Status is the outcome of a run.
type Status string

const (
	StatusCompleted      Status = "completed"
	StatusRequiresAction Status = "requires_action"
	StatusFailed         Status = "failed"
)

// Ledger codes that are not error kinds.
const (
	CodeSideEffectFailed = "SIDE_EFFECT_FAILED"
	CodeShortShipment    = "SHORT_SHIPMENT"
	CodeLotRejected      = "LOT_REJECTED"
	CodePartialStock     = "PARTIAL_STOCK_DECLINED"
	CodeItemAbandoned    = "ITEM_ABANDONED"
	CodeInternal         = "INTERNAL"
)

// RunResult is what Run returns. Phase is where the run stopped: the last
// phase for a completed run, the pause point for StatusRequiresAction, and the
// failing phase for StatusFailed.
type RunResult struct {
	Status             Status     `json:"status"`
	Phase              Phase      `json:"phase"`
	LastCompletedPhase Phase      `json:"last_completed_phase,omitempty"`
	Message            string     `json:"message"`
	Retryable          bool       `json:"retryable"`
	Context            RunContext `json:"context"`
}

// Summary condenses a run for the invocation surface.
type Summary struct {
	RunID      string        `json:"run_id"`
	Status     Status        `json:"status"`
	Elapsed    time.Duration `json:"elapsed"`
	Errors     []LedgerEntry `json:"errors"`
	Warnings   []LedgerEntry `json:"warnings"`
	Totals     Totals        `json:"totals"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

func newSummary(res RunResult, elapsed time.Duration, opts Options) Summary {
	s := Summary{
		RunID:      res.Context.RunID,
		Status:     res.Status,
		Elapsed:    elapsed,
		Errors:     res.Context.Errors,
		Warnings:   res.Context.Warnings,
		Totals:     res.Context.Totals,
		MaxRetries: opts.MaxRetries,
		RetryDelay: opts.RetryDelay,
	}
	if s.Errors == nil {
		s.Errors = []LedgerEntry{}
	}
	if s.Warnings == nil {
		s.Warnings = []LedgerEntry{}
	}
	return s
}
