package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/idzvilla/vin-car/internal/domain"
)

// MemoryOperatorStore is a mutex-serialized OperatorStore for tests and
// local runs without Postgres.
type MemoryOperatorStore struct {
	mu        sync.Mutex
	operators map[string]*domain.Operator
	byEmail   map[string]string
}

// NewMemoryOperatorStore creates an empty store.
func NewMemoryOperatorStore() *MemoryOperatorStore {
	return &MemoryOperatorStore{
		operators: make(map[string]*domain.Operator),
		byEmail:   make(map[string]string),
	}
}

func (s *MemoryOperatorStore) Create(ctx context.Context, operator *domain.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if operator.ID == "" {
		operator.ID = uuid.NewString()
	}
	operator.CreatedAt = now
	operator.UpdatedAt = now

	stored := *operator
	s.operators[stored.ID] = &stored
	s.byEmail[stored.Email] = stored.ID
	return nil
}

func (s *MemoryOperatorStore) GetByID(ctx context.Context, id string) (*domain.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	operator, exists := s.operators[id]
	if !exists {
		return nil, ErrNotFound
	}
	clone := *operator
	return &clone, nil
}

func (s *MemoryOperatorStore) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.byEmail[email]
	if !exists {
		return nil, ErrNotFound
	}
	clone := *s.operators[id]
	return &clone, nil
}
