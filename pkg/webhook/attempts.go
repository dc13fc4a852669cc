package webhook

import (
	"context"
	"sync"
)

// AttemptTracker counts consecutive payment failures per membership id.
// The count annotates dunning notifications with an attempt number; it is
// advisory, so implementations may lose counts on restart.
type AttemptTracker interface {
	// Incr adds one failure and returns the new count.
	Incr(ctx context.Context, membershipID string) (int, error)

	// Reset clears the count for a membership.
	Reset(ctx context.Context, membershipID string) error
}

// MemoryAttempts is a process-local AttemptTracker. Counts are lost on
// restart.
type MemoryAttempts struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryAttempts creates an empty in-process tracker.
func NewMemoryAttempts() *MemoryAttempts {
	return &MemoryAttempts{counts: make(map[string]int)}
}

func (a *MemoryAttempts) Incr(_ context.Context, membershipID string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counts[membershipID]++
	return a.counts[membershipID], nil
}

func (a *MemoryAttempts) Reset(_ context.Context, membershipID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.counts, membershipID)
	return nil
}
