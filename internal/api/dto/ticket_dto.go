package dto

import (
	"time"

	"github.com/idzvilla/vin-car/internal/domain"
)

// SubmitTicketRequest payload.
type SubmitTicketRequest struct {
	VIN string `json:"vin"`
}

// CompleteTicketRequest payload.
type CompleteTicketRequest struct {
	ArtifactRef string `json:"artifact_ref"`
}

// GrantReportsRequest payload.
type GrantReportsRequest struct {
	RequesterID string `json:"requester_id"`
	Reports     int    `json:"reports"`
}

// TicketResponse mirrors the engine's ticket snapshot.
type TicketResponse struct {
	ID          int64               `json:"id"`
	VIN         string              `json:"vin"`
	RequesterID string              `json:"requester_id"`
	Status      domain.TicketStatus `json:"status"`
	AssigneeID  *string             `json:"assignee_id,omitempty"`
	ArtifactRef *string             `json:"artifact_ref,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// FromSnapshot converts an engine snapshot into its transport shape.
func FromSnapshot(s *domain.TicketSnapshot) TicketResponse {
	return TicketResponse{
		ID:          s.ID,
		VIN:         s.VIN,
		RequesterID: s.RequesterID,
		Status:      s.Status,
		AssigneeID:  s.AssigneeID,
		ArtifactRef: s.ArtifactRef,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// SubscriptionResponse reports a requester's balance.
type SubscriptionResponse struct {
	RequesterID      string `json:"requester_id"`
	ReportsRemaining int    `json:"reports_remaining"`
	TotalReports     int    `json:"total_reports"`
}
