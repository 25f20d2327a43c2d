package domain

import "time"

// TicketStatus enumerates lifecycle states for VIN report tickets.
type TicketStatus string

const (
	TicketStatusNew   TicketStatus = "NEW"
	TicketStatusTaken TicketStatus = "TAKEN"
	TicketStatusDone  TicketStatus = "DONE"
)

// IsTerminal reports whether the status admits no further transitions.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusDone
}

// IsOpen reports whether the status counts against the
// one-open-ticket-per-(vin, requester) rule.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusNew || s == TicketStatusTaken
}

// Ticket is the unit of work: one VIN report request from one requester.
type Ticket struct {
	ID          int64
	VIN         string
	RequesterID string
	Status      TicketStatus
	AssigneeID  *string
	ArtifactRef *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanBeTaken reports whether a claim is valid from the current status.
func (t *Ticket) CanBeTaken() bool {
	return t.Status == TicketStatusNew
}

// CanBeCompleted reports whether completion is valid from the current
// status. Completion is allowed straight from NEW without a prior claim.
func (t *Ticket) CanBeCompleted() bool {
	return t.Status == TicketStatusNew || t.Status == TicketStatusTaken
}

// Snapshot returns the read-only view of the ticket handed to event
// subscribers and transport adapters.
func (t *Ticket) Snapshot() TicketSnapshot {
	return TicketSnapshot{
		ID:          t.ID,
		VIN:         t.VIN,
		RequesterID: t.RequesterID,
		Status:      t.Status,
		AssigneeID:  t.AssigneeID,
		ArtifactRef: t.ArtifactRef,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TicketSnapshot is the projection of a ticket at a point in time.
type TicketSnapshot struct {
	ID          int64        `json:"id"`
	VIN         string       `json:"vin"`
	RequesterID string       `json:"requester_id"`
	Status      TicketStatus `json:"status"`
	AssigneeID  *string      `json:"assignee_id,omitempty"`
	ArtifactRef *string      `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
