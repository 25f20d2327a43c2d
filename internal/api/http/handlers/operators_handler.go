package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/idzvilla/vin-car/internal/api/dto"
	"github.com/idzvilla/vin-car/internal/service"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

// OperatorsHandler manages roster and token endpoints.
type OperatorsHandler struct {
	operators *service.OperatorService
	quota     *service.QuotaService
}

// NewOperatorsHandler constructs handler.
func NewOperatorsHandler(operators *service.OperatorService, quota *service.QuotaService) *OperatorsHandler {
	return &OperatorsHandler{operators: operators, quota: quota}
}

// Register POST /auth/operators/register.
func (h *OperatorsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterOperatorRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	operator, err := h.operators.Register(c.UserContext(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.OperatorResponse{
		ID:          operator.ID,
		Email:       operator.Email,
		DisplayName: operator.DisplayName,
		Active:      operator.Active,
	}})
}

// Login POST /auth/operators/login.
func (h *OperatorsHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	token, expiresAt, _, err := h.operators.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{AccessToken: token, ExpiresAt: expiresAt}})
}

// RequesterToken POST /auth/requesters/token. Called by the upstream
// transport to exchange its own notion of a user for an API token.
func (h *OperatorsHandler) RequesterToken(c *fiber.Ctx) error {
	var req dto.RequesterTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	token, expiresAt, err := h.operators.IssueRequesterToken(req.RequesterID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{AccessToken: token, ExpiresAt: expiresAt}})
}

// GrantReports POST /v1/subscriptions/grant. Operator-only top-up.
func (h *OperatorsHandler) GrantReports(c *fiber.Ctx) error {
	var req dto.GrantReportsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.RequesterID == "" {
		return apperrors.NewValidationError("requester_id required", nil)
	}
	sub, err := h.quota.Grant(c.UserContext(), req.RequesterID, req.Reports)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SubscriptionResponse{
		RequesterID:      sub.RequesterID,
		ReportsRemaining: sub.ReportsRemaining,
		TotalReports:     sub.TotalReports,
	}})
}
