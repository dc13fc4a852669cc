package subscription

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
// A single mutex gives every operation the same isolation the Postgres
// store gets from single-statement writes.
type MemoryStore struct {
	mu      sync.RWMutex
	byEmail map[string]Subscription
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byEmail: make(map[string]Subscription)}
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *MemoryStore) GetByUserID(_ context.Context, userID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.byEmail {
		if sub.UserID == userID {
			out := sub
			return &out, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (s *MemoryStore) Upsert(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(sub.Email)
	if existing, ok := s.byEmail[email]; ok {
		// Keep the original row identity and creation time on overwrite.
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
	}
	s.byEmail[email] = *sub
	return nil
}

func (s *MemoryStore) Update(_ context.Context, sub *Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := NormalizeEmail(sub.Email)
	if _, ok := s.byEmail[email]; !ok {
		return ErrSubscriptionNotFound
	}
	s.byEmail[email] = *sub
	return nil
}
