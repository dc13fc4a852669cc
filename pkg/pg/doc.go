// Package pg wires PostgreSQL connectivity for the billing service: pool
// construction with startup retries, goose migrations routed through slog,
// a health check closure, and error helpers.
//
// IsDuplicateKeyError deserves a note: the webhook idempotency ledger uses
// unique-constraint violations as its claim primitive, so callers depend on
// this helper to tell "slot already taken" apart from real failures.
package pg
