// Package item implements the Item aggregate: the RFQ line or order line that
// alone carries workflow state.
//
// An Item's state changes only through ApplyTransition, which requires an edge
// whose From matches the current state. Once the state is terminal (CLOSED,
// RFQ_CLOSED, FORCE_CLOSED) every mutator returns an IMMUTABLE_ITEM error.
//
// Key business rules:
//   - Items are created in their kind's initial state (DRAFT or ORDER_CREATED)
//   - stateEnteredAt is rewritten on every transition and drives SLA computation
//   - Entering a state clears SLA flags and starts the timer the edge declares
//   - Soft deletion is only allowed while the item is still in its initial state
//   - version increases by one on every persisted mutation
package item
