// Package payment records the money side of the billing pipeline:
// transactions, invoices, and refunds.
//
// These ledgers are append-mostly facts correlated to a subscription
// through the provider membership id. They never gate product access; the
// subscription package owns entitlement. Each row carries the provider's
// own id under a unique constraint, so a redelivered payment event that
// somehow slips past the webhook idempotency ledger still cannot record a
// charge twice.
package payment
