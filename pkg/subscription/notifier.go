package subscription

import (
	"context"
	"log/slog"
)

// PaymentFailedNotice carries what the dunning email needs.
type PaymentFailedNotice struct {
	Email         string
	AttemptNumber int
	ManageURL     string
}

// Notifier delivers customer-facing billing notifications. Notification
// failures are logged but never fail the webhook pipeline: a lost email is
// recoverable, a lost state transition is not.
type Notifier interface {
	PaymentFailed(ctx context.Context, notice PaymentFailedNotice) error
}

// NoopNotifier discards notifications. Used in development and tests.
type NoopNotifier struct {
	Log *slog.Logger
}

func (n NoopNotifier) PaymentFailed(ctx context.Context, notice PaymentFailedNotice) error {
	if n.Log != nil {
		n.Log.InfoContext(ctx, "payment failure notification suppressed",
			slog.String("email", notice.Email),
			slog.Int("attempt_number", notice.AttemptNumber),
		)
	}
	return nil
}
