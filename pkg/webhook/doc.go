// Package webhook ingests payment provider events and applies each one
// exactly once logically.
//
// Delivery is at-least-once with arbitrary reordering and duplication, so
// the pipeline runs a three-phase protocol around every event:
//
//  1. Claim: insert an idempotency record keyed by (event id, event type).
//     A uniqueness violation means another delivery won; acknowledge and
//     skip. The failed insert is the concurrency control, not an error.
//  2. Process: the claim winner routes the event to its type handler,
//     which mutates the subscription state machine and payment ledgers.
//  3. Finalize or release: success marks the record completed with a
//     metadata snapshot; failure deletes it so the provider's redelivery
//     can claim again. Success is remembered, failure is forgotten.
//
// No cross-event locking exists. Two different events touching the same
// subscription rely on the store's single-statement writes and row-level
// isolation. A background sweeper reclaims claims stranded by a crash
// between phases.
package webhook
