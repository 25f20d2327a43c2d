package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/idzvilla/vin-car/internal/api/dto"
	"github.com/idzvilla/vin-car/internal/auth"
	"github.com/idzvilla/vin-car/internal/domain"
	"github.com/idzvilla/vin-car/internal/observability"
	"github.com/idzvilla/vin-car/internal/ratelimit"
	"github.com/idzvilla/vin-car/internal/service"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

// TicketsHandler exposes the lifecycle engine over HTTP.
type TicketsHandler struct {
	lifecycle *service.LifecycleService
	limiter   *ratelimit.Limiter
	metrics   *observability.Metrics
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(lifecycle *service.LifecycleService, limiter *ratelimit.Limiter, metrics *observability.Metrics) *TicketsHandler {
	return &TicketsHandler{lifecycle: lifecycle, limiter: limiter, metrics: metrics}
}

// Submit POST /v1/tickets.
func (h *TicketsHandler) Submit(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.SubjectType != domain.SubjectTypeRequester {
		return apperrors.NewForbidden("requester required")
	}

	allowed, _ := h.limiter.Allow(c.UserContext(), principal.RequesterID)
	if !allowed {
		return apperrors.NewRateLimited(map[string]any{"requester_id": principal.RequesterID})
	}

	var req dto.SubmitTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	snapshot, err := h.lifecycle.SubmitIdentifier(c.UserContext(), req.VIN, principal.RequesterID)
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("submit")
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromSnapshot(snapshot)})
}

// Claim POST /v1/tickets/:id/claim.
func (h *TicketsHandler) Claim(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewForbidden("operator required")
	}
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.lifecycle.Claim(c.UserContext(), ticketID, principal.Operator.ID)
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("claim")
	return c.JSON(fiber.Map{"data": dto.FromSnapshot(snapshot)})
}

// Complete POST /v1/tickets/:id/complete.
func (h *TicketsHandler) Complete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return apperrors.NewForbidden("operator required")
	}
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}

	var req dto.CompleteTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	snapshot, err := h.lifecycle.Complete(c.UserContext(), ticketID, req.ArtifactRef, principal.Operator.ID)
	if err != nil {
		return err
	}
	h.metrics.RecordTransition("complete")
	return c.JSON(fiber.Map{"data": dto.FromSnapshot(snapshot)})
}

// Get GET /v1/tickets/:id. Operators see any ticket; requesters only
// their own.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticketID, err := parseTicketID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.lifecycle.GetTicket(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	if principal.Operator == nil && snapshot.RequesterID != principal.RequesterID {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return c.JSON(fiber.Map{"data": dto.FromSnapshot(snapshot)})
}

func parseTicketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid ticket id", nil)
	}
	return id, nil
}
