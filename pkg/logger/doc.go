// Package logger builds configured log/slog loggers with context-aware
// attribute injection.
//
// New applies functional options on top of production-safe defaults (JSON
// format, INFO level, stdout). ContextHandler decorates the underlying slog
// handler and injects request-scoped attributes extracted from context at log
// time, which keeps correlation identifiers (request id, event id) on every
// record without threading them through call sites.
//
// The attr helpers standardize the attribute keys used across the billing
// pipeline (event_id, event_type, membership_id, email) so log queries for a
// given webhook delivery line up across claim, handler, and finalize records.
package logger
