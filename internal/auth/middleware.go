package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/idzvilla/vin-car/internal/domain"
	"github.com/idzvilla/vin-car/internal/repository"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. Requesters carry only an
// opaque id; operators are loaded from the roster.
type Principal struct {
	SubjectType domain.SubjectType
	RequesterID string
	Operator    *domain.Operator
}

// Middleware validates bearer tokens and loads principals.
type Middleware struct {
	tokens    *TokenManager
	operators repository.OperatorStore
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, operators repository.OperatorStore) *Middleware {
	return &Middleware{tokens: tokens, operators: operators}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	principal := &Principal{SubjectType: claims.Subject}

	switch claims.Subject {
	case domain.SubjectTypeRequester:
		principal.RequesterID = claims.SubjectID
	case domain.SubjectTypeOperator:
		operator, err := m.operators.GetByID(c.Context(), claims.SubjectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewUnauthorized("operator not found")
			}
			return apperrors.MapError(err)
		}
		principal.Operator = operator
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// RequireRequester ensures a requester is authenticated.
func RequireRequester() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeRequester {
			return apperrors.NewForbidden("requester required")
		}
		return c.Next()
	}
}

// RequireOperator ensures an operator is authenticated.
func RequireOperator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.SubjectType != domain.SubjectTypeOperator || principal.Operator == nil {
			return apperrors.NewForbidden("operator required")
		}
		return c.Next()
	}
}
