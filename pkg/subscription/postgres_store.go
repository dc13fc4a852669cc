package subscription

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/tradelog/billing/pkg/pg"
)

// DB is the pgx surface the store needs. Both *pgxpool.Pool and pgxmock
// satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists subscriptions in the subscriptions table. Every
// write is a single statement so concurrent webhook handlers serialize on
// row-level locks instead of application mutexes.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Postgres-backed store. Panics if db is nil.
func NewPostgresStore(db DB) *PostgresStore {
	if db == nil {
		panic("subscription: db is required")
	}
	return &PostgresStore{db: db}
}

const subscriptionColumns = `id, user_id, email, plan, billing_interval, status,
	whop_membership_id, end_date, trial_ends_at, created_at, updated_at`

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE email = $1`
	return s.scanOne(s.db.QueryRow(ctx, query, NormalizeEmail(email)))
}

func (s *PostgresStore) GetByUserID(ctx context.Context, userID string) (*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1`
	return s.scanOne(s.db.QueryRow(ctx, query, userID))
}

func (s *PostgresStore) Upsert(ctx context.Context, sub *Subscription) error {
	query := `
		INSERT INTO subscriptions (
			id, user_id, email, plan, billing_interval, status,
			whop_membership_id, end_date, trial_ends_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (email) DO UPDATE SET
			plan = EXCLUDED.plan,
			billing_interval = EXCLUDED.billing_interval,
			status = EXCLUDED.status,
			whop_membership_id = EXCLUDED.whop_membership_id,
			end_date = EXCLUDED.end_date,
			trial_ends_at = EXCLUDED.trial_ends_at,
			updated_at = EXCLUDED.updated_at`

	_, err := s.db.Exec(ctx, query,
		sub.ID, sub.UserID, NormalizeEmail(sub.Email), sub.Plan,
		string(sub.Interval), string(sub.Status), sub.WhopMembershipID,
		sub.EndDate, sub.TrialEndsAt, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, sub *Subscription) error {
	query := `
		UPDATE subscriptions SET
			plan = $2,
			billing_interval = $3,
			status = $4,
			whop_membership_id = $5,
			end_date = $6,
			trial_ends_at = $7,
			updated_at = $8
		WHERE email = $1`

	tag, err := s.db.Exec(ctx, query,
		NormalizeEmail(sub.Email), sub.Plan, string(sub.Interval),
		string(sub.Status), sub.WhopMembershipID, sub.EndDate,
		sub.TrialEndsAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *PostgresStore) scanOne(row pgx.Row) (*Subscription, error) {
	var (
		sub      Subscription
		interval string
		status   string
	)
	err := row.Scan(
		&sub.ID, &sub.UserID, &sub.Email, &sub.Plan, &interval, &status,
		&sub.WhopMembershipID, &sub.EndDate, &sub.TrialEndsAt,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	sub.Interval = BillingInterval(interval)
	sub.Status = Status(status)
	return &sub, nil
}
