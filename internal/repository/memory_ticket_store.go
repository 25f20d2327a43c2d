package repository

import (
	"context"
	"sync"
	"time"

	"github.com/idzvilla/vin-car/internal/domain"
)

// MemoryTicketStore is a mutex-serialized TicketStore for tests and local
// runs without Postgres. The single lock gives the same atomicity the
// partial unique index and conditional UPDATE provide in Postgres.
type MemoryTicketStore struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*domain.Ticket
	open    map[openKey]int64
}

type openKey struct {
	vin         string
	requesterID string
}

// NewMemoryTicketStore creates an empty store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{
		nextID:  1,
		tickets: make(map[int64]*domain.Ticket),
		open:    make(map[openKey]int64),
	}
}

func (s *MemoryTicketStore) Insert(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := openKey{vin: ticket.VIN, requesterID: ticket.RequesterID}
	if _, exists := s.open[key]; exists {
		return ErrDuplicateOpenTicket
	}

	now := time.Now().UTC()
	ticket.ID = s.nextID
	s.nextID++
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	stored := *ticket
	s.tickets[stored.ID] = &stored
	if stored.Status.IsOpen() {
		s.open[key] = stored.ID
	}
	return nil
}

func (s *MemoryTicketStore) FindOpenDuplicate(ctx context.Context, vin, requesterID string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, exists := s.open[openKey{vin: vin, requesterID: requesterID}]
	if !exists {
		return nil, ErrNotFound
	}
	return copyTicket(s.tickets[id]), nil
}

func (s *MemoryTicketStore) FindByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, exists := s.tickets[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyTicket(ticket), nil
}

func (s *MemoryTicketStore) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, exists := s.tickets[id]
	if !exists {
		return nil, ErrPreconditionFailed
	}
	if ticket.Status != update.Expected {
		return nil, ErrPreconditionFailed
	}

	ticket.Status = update.Next
	if ticket.AssigneeID == nil && update.AssigneeID != nil {
		assignee := *update.AssigneeID
		ticket.AssigneeID = &assignee
	}
	if update.ArtifactRef != nil {
		ref := *update.ArtifactRef
		ticket.ArtifactRef = &ref
	}
	ticket.UpdatedAt = time.Now().UTC()

	if !ticket.Status.IsOpen() {
		delete(s.open, openKey{vin: ticket.VIN, requesterID: ticket.RequesterID})
	}
	return copyTicket(ticket), nil
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	if t.AssigneeID != nil {
		assignee := *t.AssigneeID
		clone.AssigneeID = &assignee
	}
	if t.ArtifactRef != nil {
		ref := *t.ArtifactRef
		clone.ArtifactRef = &ref
	}
	return &clone
}
