package orchestrator

import (
	"errors"
	"time"

	"tradeflow/internal/core/domain/model/kernel"
	"tradeflow/internal/pkg/errs"

	"github.com/shopspring/decimal"
)

// Options control the pause points and branching policy of a run.
//
// Every Auto flag replaces one human decision: when it is false the run stops
// at that point with StatusRequiresAction and can be resumed once a person has
// acted. MaxRetries and RetryDelay are carried for the caller; Run never
// retries on its own.
type Options struct {
	AutoApproveQualification bool `json:"auto_approve_qualification"`
	AutoApprovePricing       bool `json:"auto_approve_pricing"`
	AutoAcceptQuote          bool `json:"auto_accept_quote"`
	AutoApprovePO            bool `json:"auto_approve_po"`
	AutoPassQC               bool `json:"auto_pass_qc"`
	AutoSettle               bool `json:"auto_settle"`

	AllowPartialFulfillment bool `json:"allow_partial_fulfillment"`
	BlockDispatchOnQCFail   bool `json:"block_dispatch_on_qc_fail"`
	ExternalSourcing        bool `json:"external_sourcing"`

	// LotSize splits received goods into lots of at most this many units.
	// Zero receives the whole shortfall as one lot.
	LotSize int `json:"lot_size"`
	// PricingMarkup is applied to the vendor cost when no unit price is given.
	PricingMarkup decimal.Decimal `json:"pricing_markup"`

	Initiator kernel.Actor `json:"initiator"`
	Approver  kernel.Actor `json:"approver"`

	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`
}

// DefaultOptions pauses at every human decision and posts what passed
// inspection.
func DefaultOptions(initiator, approver kernel.Actor) Options {
	return Options{
		Initiator:     initiator,
		Approver:      approver,
		PricingMarkup: decimal.RequireFromString("0.20"),
		MaxRetries:    3,
		RetryDelay:    5 * time.Second,
	}
}

func (o Options) Validate() error {
	var initiatorErr, approverErr, lotErr, markupErr, retryErr error
	if err := o.Initiator.Validate(); err != nil {
		initiatorErr = errs.NewValueIsInvalidErrorWithCause("initiator", err)
	}
	if err := o.Approver.Validate(); err != nil {
		approverErr = errs.NewValueIsInvalidErrorWithCause("approver", err)
	}
	if o.LotSize < 0 {
		lotErr = errs.NewValueIsOutOfRangeError("lot size", o.LotSize, 0, "unbounded")
	}
	if o.PricingMarkup.IsNegative() {
		markupErr = errs.NewValueIsOutOfRangeError("pricing markup", o.PricingMarkup, 0, "unbounded")
	}
	if o.MaxRetries < 0 || o.RetryDelay < 0 {
		retryErr = errs.NewValueIsInvalidError("retry policy")
	}
	return errors.Join(initiatorErr, approverErr, lotErr, markupErr, retryErr)
}
