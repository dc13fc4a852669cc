package webhook

import (
	"context"
	"time"
)

// RecordStatus is the ledger lifecycle of one (webhook id, event type)
// slot.
type RecordStatus string

const (
	StatusProcessing RecordStatus = "processing"
	StatusCompleted  RecordStatus = "completed"
)

// Record is one idempotency ledger entry.
type Record struct {
	WebhookID string
	EventType string
	Status    RecordStatus
	ClaimedAt time.Time
	Metadata  map[string]any
}

// LedgerStore is the idempotency ledger. The uniqueness constraint on
// (webhook id, event type) is the pipeline's only concurrency primitive:
// the claim insert either wins or fails, and the loser acknowledges
// without running handler logic.
//
// Success is remembered permanently through Finalize; failure is forgotten
// through Release so a redelivery can claim the slot again.
type LedgerStore interface {
	// Claim inserts a processing record. Returns ErrAlreadyClaimed when a
	// record for (webhookID, eventType) already exists, regardless of its
	// status.
	Claim(ctx context.Context, webhookID, eventType string, claimedAt time.Time) error

	// Finalize marks a claimed record completed with a metadata snapshot.
	Finalize(ctx context.Context, webhookID, eventType string, metadata map[string]any) error

	// Release deletes a claimed record so the event can be retried.
	Release(ctx context.Context, webhookID, eventType string) error

	// ReleaseStale deletes processing records claimed before the cutoff.
	// A crash between claim and finalize otherwise leaves the slot stuck
	// forever. Returns the number of reclaimed slots.
	ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error)
}
