package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradelog/billing/pkg/pg"
)

// DB is the pgx surface the ledger needs. Both *pgxpool.Pool and pgxmock
// satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger implements LedgerStore on the processed_webhooks table.
// The primary key on (webhook_id, event_type) is the claim mechanism: the
// insert either succeeds or raises a uniqueness violation, and the
// violation is the signal that another delivery won.
type PostgresLedger struct {
	db DB
}

// NewPostgresLedger creates a Postgres-backed ledger. Panics if db is nil.
func NewPostgresLedger(db DB) *PostgresLedger {
	if db == nil {
		panic("webhook: db is required")
	}
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Claim(ctx context.Context, webhookID, eventType string, claimedAt time.Time) error {
	query := `
		INSERT INTO processed_webhooks (webhook_id, event_type, status, claimed_at)
		VALUES ($1, $2, $3, $4)`

	_, err := l.db.Exec(ctx, query, webhookID, eventType, string(StatusProcessing), claimedAt)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("failed to claim webhook event: %w", err)
	}
	return nil
}

func (l *PostgresLedger) Finalize(ctx context.Context, webhookID, eventType string, metadata map[string]any) error {
	query := `
		UPDATE processed_webhooks
		SET status = $3, metadata = $4, completed_at = now()
		WHERE webhook_id = $1 AND event_type = $2`

	tag, err := l.db.Exec(ctx, query, webhookID, eventType, string(StatusCompleted), metadata)
	if err != nil {
		return fmt.Errorf("failed to finalize webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (l *PostgresLedger) Release(ctx context.Context, webhookID, eventType string) error {
	query := `DELETE FROM processed_webhooks WHERE webhook_id = $1 AND event_type = $2`

	if _, err := l.db.Exec(ctx, query, webhookID, eventType); err != nil {
		return fmt.Errorf("failed to release webhook event: %w", err)
	}
	return nil
}

func (l *PostgresLedger) ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	query := `
		DELETE FROM processed_webhooks
		WHERE status = $1 AND claimed_at < $2`

	tag, err := l.db.Exec(ctx, query, string(StatusProcessing), olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale webhook claims: %w", err)
	}
	return tag.RowsAffected(), nil
}
