// Package errs provides the error types shared by the tradeflow services.
//
// Two families live here:
//   - value errors (ValueIsRequiredError, ValueIsInvalidError,
//     ObjectNotFoundError) returned by constructors and repositories
//   - WorkflowError, the structured failure of a transition or workflow step,
//     classified by Kind and, for validation failures, by the Check that failed
//
// Every type carries a sentinel for errors.Is, constructors with and without a
// cause, and Unwrap. KindOf classifies any error in the chain and IsRetryable
// reports whether a caller may simply try again.
package errs
