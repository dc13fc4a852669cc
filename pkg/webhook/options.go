package webhook

import (
	"log/slog"
	"time"
)

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithMembershipFetcher enables the read-through membership lookup for
// payment events.
func WithMembershipFetcher(f MembershipFetcher) ProcessorOption {
	return func(p *Processor) {
		p.fetcher = f
	}
}

// WithAttemptTracker overrides the in-process payment failure counter.
// Panics if tracker is nil.
func WithAttemptTracker(tracker AttemptTracker) ProcessorOption {
	return func(p *Processor) {
		if tracker == nil {
			panic("webhook: attempt tracker cannot be nil")
		}
		p.attempts = tracker
	}
}

// WithResetAttemptsOnSuccess clears a membership's failure count when a
// payment for it succeeds. Off by default: the count then reflects the
// full failure history rather than the current dunning sequence.
func WithResetAttemptsOnSuccess() ProcessorOption {
	return func(p *Processor) {
		p.resetAttemptsOnSuccess = true
	}
}

// WithStaleClaimAge sets how old a processing claim must be before the
// sweeper reclaims it. Panics on non-positive age.
func WithStaleClaimAge(age time.Duration) ProcessorOption {
	return func(p *Processor) {
		if age <= 0 {
			panic("webhook: stale claim age must be positive")
		}
		p.staleClaimAge = age
	}
}

// WithSweepInterval sets how often the sweeper runs. Panics on
// non-positive interval.
func WithSweepInterval(interval time.Duration) ProcessorOption {
	return func(p *Processor) {
		if interval <= 0 {
			panic("webhook: sweep interval must be positive")
		}
		p.sweepInterval = interval
	}
}

// WithLogger overrides the default slog logger. Panics if log is nil.
func WithLogger(log *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		if log == nil {
			panic("webhook: logger cannot be nil")
		}
		p.log = log
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now == nil {
			panic("webhook: clock cannot be nil")
		}
		p.now = now
	}
}
