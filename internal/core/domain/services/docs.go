// Package services provides domain services that span more than one item or
// collaborator in the trade workflow.
//
// The package includes:
//   - Validator: decides whether an actor may move an item along an edge of the
//     transition table, running role, guard and precondition checks in order
//   - Preconditions: the named business checks that edges may require
//   - ImmutabilityGuard: rejects writes to items in terminal states
//   - VendorSelector: picks the vendor offer a purchase order is raised against
//
// Domain services hold no state of their own; callers pass the aggregates and
// ports they need.
package services
