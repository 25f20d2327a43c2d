package repository

import (
	"context"
	"errors"

	"github.com/idzvilla/vin-car/internal/domain"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateOpenTicket is returned by Insert when a NEW or TAKEN
	// ticket already exists for the same (vin, requester) pair.
	ErrDuplicateOpenTicket = errors.New("open ticket already exists for vin and requester")

	// ErrPreconditionFailed is returned by UpdateStatus when the stored
	// status no longer matches the expected status.
	ErrPreconditionFailed = errors.New("ticket status did not match expected status")

	// ErrQuotaExhausted is returned by Consume when the subscription has
	// no reports remaining.
	ErrQuotaExhausted = errors.New("no reports remaining on subscription")
)

// StatusUpdate describes a conditional transition applied to one ticket.
// AssigneeID and ArtifactRef are only written when non-nil; an existing
// assignee is never overwritten.
type StatusUpdate struct {
	Expected    domain.TicketStatus
	Next        domain.TicketStatus
	AssigneeID  *string
	ArtifactRef *string
}

// TicketStore is the authoritative record of every ticket. All state
// transitions are serialized through its conditional-update primitive.
type TicketStore interface {
	// Insert assigns identity and timestamps to the ticket. The duplicate
	// check over open statuses is atomic with respect to concurrent
	// inserts.
	Insert(ctx context.Context, ticket *domain.Ticket) error

	// FindOpenDuplicate returns the NEW or TAKEN ticket for the pair, or
	// ErrNotFound.
	FindOpenDuplicate(ctx context.Context, vin, requesterID string) (*domain.Ticket, error)

	FindByID(ctx context.Context, id int64) (*domain.Ticket, error)

	// UpdateStatus applies the transition with compare-and-set semantics:
	// it succeeds only if the stored status equals update.Expected at the
	// time of the write, otherwise ErrPreconditionFailed. This is the sole
	// mutation path after insert.
	UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*domain.Ticket, error)
}
