package subscription

import (
	"log/slog"
	"time"
)

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithProvider attaches a provider client for the authoritative
// read-through and checkout creation.
func WithProvider(p ProviderClient) ManagerOption {
	return func(m *Manager) {
		m.provider = p
	}
}

// WithNotifier overrides the dunning notifier.
// Panics if n is nil; use NoopNotifier to discard notifications.
func WithNotifier(n Notifier) ManagerOption {
	return func(m *Manager) {
		if n == nil {
			panic("subscription: notifier cannot be nil")
		}
		m.notifier = n
	}
}

// WithLogger overrides the default slog logger.
// Panics if log is nil.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log == nil {
			panic("subscription: logger cannot be nil")
		}
		m.log = log
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now == nil {
			panic("subscription: clock cannot be nil")
		}
		m.now = now
	}
}
