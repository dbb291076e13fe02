package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies workflow failures. Callers branch on the kind to decide
// between surfacing a message, asking for a human, or retrying.
type Kind string

const (
	KindValidation              Kind = "VALIDATION"
	KindAuthorization           Kind = "AUTHORIZATION"
	KindPreconditionFailed      Kind = "PRECONDITION_FAILED"
	KindImmutableItem           Kind = "IMMUTABLE_ITEM"
	KindExternalOperationFailed Kind = "EXTERNAL_OPERATION_FAILED"
	KindConcurrentModification  Kind = "CONCURRENT_MODIFICATION"
)

var (
	ErrValidation              = errors.New("validation failed")
	ErrAuthorization           = errors.New("actor is not authorized")
	ErrPreconditionFailed      = errors.New("precondition failed")
	ErrImmutableItem           = errors.New("item closed")
	ErrExternalOperationFailed = errors.New("external operation failed")
	ErrConcurrentModification  = errors.New("concurrent modification")
)

// Names of the validator checks reported in WorkflowError.Check.
const (
	CheckEdge          = "edge"
	CheckRole          = "role"
	CheckFields        = "fields"
	CheckPrecondition  = "precondition"
	CheckJustification = "justification"
	CheckGuard         = "guard"
	CheckVersion       = "version"
	CheckOperation     = "operation"
)

func sentinelFor(kind Kind) error {
	switch kind {
	case KindValidation:
		return ErrValidation
	case KindAuthorization:
		return ErrAuthorization
	case KindPreconditionFailed:
		return ErrPreconditionFailed
	case KindImmutableItem:
		return ErrImmutableItem
	case KindExternalOperationFailed:
		return ErrExternalOperationFailed
	case KindConcurrentModification:
		return ErrConcurrentModification
	default:
		return ErrValidation
	}
}

// WorkflowError is the structured failure returned by the validator, the
// executor and the persistence boundary. It unwraps both to the sentinel of
// its Kind and to its Cause.
type WorkflowError struct {
	Kind         Kind
	Check        string
	Message      string
	ItemID       string
	State        string
	Fields       []string
	Precondition string
	Cause        error
}

func (e *WorkflowError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	return withCause(b.String(), e.Cause)
}

func (e *WorkflowError) Unwrap() []error {
	if e.Cause != nil {
		return []error{sentinelFor(e.Kind), e.Cause}
	}
	return []error{sentinelFor(e.Kind)}
}

// Retryable reports whether re-reading state and trying again can succeed.
func (e *WorkflowError) Retryable() bool {
	return e.Kind == KindConcurrentModification
}

func NewImmutableItemError(itemID, state string) *WorkflowError {
	return &WorkflowError{
		Kind:    KindImmutableItem,
		Check:   CheckGuard,
		Message: fmt.Sprintf("item %s is closed in terminal state %s", itemID, state),
		ItemID:  itemID,
		State:   state,
	}
}

func NewIllegalTransitionError(kind, from, to string) *WorkflowError {
	return &WorkflowError{
		Kind:    KindValidation,
		Check:   CheckEdge,
		Message: fmt.Sprintf("%s cannot move from %s to %s", kind, from, to),
		State:   from,
	}
}

func NewAuthorizationError(role, from, to string) *WorkflowError {
	return &WorkflowError{
		Kind:    KindAuthorization,
		Check:   CheckRole,
		Message: fmt.Sprintf("role %s may not move item from %s to %s", role, from, to),
		State:   from,
	}
}

func NewMissingFieldsError(itemID string, fields []string) *WorkflowError {
	return &WorkflowError{
		Kind:    KindValidation,
		Check:   CheckFields,
		Message: fmt.Sprintf("item %s is missing required fields", itemID),
		ItemID:  itemID,
		Fields:  fields,
	}
}

func NewJustificationRequiredError(from, to string) *WorkflowError {
	return &WorkflowError{
		Kind:    KindValidation,
		Check:   CheckJustification,
		Message: fmt.Sprintf("transition from %s to %s requires a justification", from, to),
		State:   from,
	}
}

func NewPreconditionFailedError(name, reason string) *WorkflowError {
	return &WorkflowError{
		Kind:         KindPreconditionFailed,
		Check:        CheckPrecondition,
		Message:      fmt.Sprintf("%s: %s", name, reason),
		Precondition: name,
	}
}

func NewConcurrentModificationError(itemID string, expectedVersion int64) *WorkflowError {
	return &WorkflowError{
		Kind:    KindConcurrentModification,
		Check:   CheckVersion,
		Message: fmt.Sprintf("item %s was modified since version %d", itemID, expectedVersion),
		ItemID:  itemID,
	}
}

func NewExternalOperationError(operation string, cause error) *WorkflowError {
	return &WorkflowError{
		Kind:    KindExternalOperationFailed,
		Check:   CheckOperation,
		Message: operation,
		Cause:   cause,
	}
}

// KindOf extracts the workflow kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr.Kind, true
	}
	switch {
	case errors.Is(err, ErrValueIsRequired), errors.Is(err, ErrValueIsInvalid), errors.Is(err, ErrValueIsOutOfRange):
		return KindValidation, true
	default:
		return "", false
	}
}

// IsRetryable reports whether err may succeed on a fresh attempt.
// IMMUTABLE_ITEM and AUTHORIZATION are never retryable.
func IsRetryable(err error) bool {
	var wfErr *WorkflowError
	return errors.As(err, &wfErr) && wfErr.Retryable()
}
