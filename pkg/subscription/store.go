package subscription

import "context"

// Store defines subscription persistence. Implementations must enforce
// uniqueness on both user id and normalized email, and each write must be a
// single statement against the store: two webhook handlers may target the
// same row concurrently and rely on the store's row-level isolation rather
// than application locks.
type Store interface {
	// GetByEmail retrieves a subscription by normalized email.
	// Returns ErrSubscriptionNotFound if no row exists.
	GetByEmail(ctx context.Context, email string) (*Subscription, error)

	// GetByUserID retrieves a subscription by internal user id.
	// Returns ErrSubscriptionNotFound if no row exists.
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)

	// Upsert creates the subscription or overwrites the existing row for
	// the same identity in one atomic statement.
	Upsert(ctx context.Context, sub *Subscription) error

	// Update overwrites mutable fields of an existing row matched by email.
	// Returns ErrSubscriptionNotFound if no row exists.
	Update(ctx context.Context, sub *Subscription) error
}
