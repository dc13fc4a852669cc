package webhook

import (
	"context"
	"sync"
	"time"
)

type ledgerKey struct {
	webhookID string
	eventType string
}

// MemoryLedger is an in-memory LedgerStore for tests and local
// development. The mutex stands in for the database's uniqueness
// constraint.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[ledgerKey]Record
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[ledgerKey]Record)}
}

func (l *MemoryLedger) Claim(_ context.Context, webhookID, eventType string, claimedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{webhookID, eventType}
	if _, ok := l.records[key]; ok {
		return ErrAlreadyClaimed
	}
	l.records[key] = Record{
		WebhookID: webhookID,
		EventType: eventType,
		Status:    StatusProcessing,
		ClaimedAt: claimedAt,
	}
	return nil
}

func (l *MemoryLedger) Finalize(_ context.Context, webhookID, eventType string, metadata map[string]any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey{webhookID, eventType}
	rec, ok := l.records[key]
	if !ok {
		return ErrRecordNotFound
	}
	rec.Status = StatusCompleted
	rec.Metadata = metadata
	l.records[key] = rec
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, webhookID, eventType string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.records, ledgerKey{webhookID, eventType})
	return nil
}

func (l *MemoryLedger) ReleaseStale(_ context.Context, olderThan time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var reclaimed int64
	for key, rec := range l.records {
		if rec.Status == StatusProcessing && rec.ClaimedAt.Before(olderThan) {
			delete(l.records, key)
			reclaimed++
		}
	}
	return reclaimed, nil
}

// Get returns a copy of a record. Used by tests to inspect ledger state.
func (l *MemoryLedger) Get(webhookID, eventType string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[ledgerKey{webhookID, eventType}]
	return rec, ok
}
