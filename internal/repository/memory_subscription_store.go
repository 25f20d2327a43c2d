package repository

import (
	"context"
	"sync"
	"time"

	"github.com/idzvilla/vin-car/internal/domain"
)

// MemorySubscriptionStore is a mutex-serialized SubscriptionStore for tests
// and local runs without Postgres.
type MemorySubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*domain.Subscription
}

// NewMemorySubscriptionStore creates an empty store.
func NewMemorySubscriptionStore() *MemorySubscriptionStore {
	return &MemorySubscriptionStore{subs: make(map[string]*domain.Subscription)}
}

func (s *MemorySubscriptionStore) Get(ctx context.Context, requesterID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subs[requesterID]
	if !exists {
		return nil, ErrNotFound
	}
	clone := *sub
	return &clone, nil
}

func (s *MemorySubscriptionStore) Grant(ctx context.Context, requesterID string, reports int) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	sub, exists := s.subs[requesterID]
	if !exists {
		sub = &domain.Subscription{RequesterID: requesterID, CreatedAt: now}
		s.subs[requesterID] = sub
	}
	sub.ReportsRemaining += reports
	sub.TotalReports += reports
	sub.UpdatedAt = now

	clone := *sub
	return &clone, nil
}

func (s *MemorySubscriptionStore) Refund(ctx context.Context, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subs[requesterID]
	if !exists {
		return ErrNotFound
	}
	sub.ReportsRemaining++
	sub.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemorySubscriptionStore) Consume(ctx context.Context, requesterID string) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subs[requesterID]
	if !exists || sub.ReportsRemaining <= 0 {
		return nil, ErrQuotaExhausted
	}
	sub.ReportsRemaining--
	sub.UpdatedAt = time.Now().UTC()

	clone := *sub
	return &clone, nil
}
