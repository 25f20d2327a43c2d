package events

import (
	"time"

	"github.com/idzvilla/vin-car/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketAssigned  EventType = "ticket_assigned"
	EventTicketCompleted EventType = "ticket_completed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type        domain.SubjectType `json:"type"`
	RequesterID *string            `json:"requester_id,omitempty"`
	OperatorID  *string            `json:"operator_id,omitempty"`
}

// Event represents a lifecycle event emitted by the engine. Every event
// carries the ticket snapshot taken right after the transition, so
// subscribers never re-read the store.
type Event struct {
	ID        string                `json:"id"`
	Type      EventType             `json:"type"`
	Ticket    domain.TicketSnapshot `json:"ticket"`
	Actor     Actor                 `json:"actor"`
	Timestamp time.Time             `json:"timestamp"`
}

// ArtifactRef returns the completion artifact carried by a
// ticket_completed event, or "" for other event types.
func (e Event) ArtifactRef() string {
	if e.Type != EventTicketCompleted || e.Ticket.ArtifactRef == nil {
		return ""
	}
	return *e.Ticket.ArtifactRef
}
