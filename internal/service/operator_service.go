package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/idzvilla/vin-car/internal/auth"
	"github.com/idzvilla/vin-car/internal/domain"
	"github.com/idzvilla/vin-car/internal/repository"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

// OperatorService manages the operator roster and credentials.
type OperatorService struct {
	operators  repository.OperatorStore
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewOperatorService constructs the service.
func NewOperatorService(operators repository.OperatorStore, tokens *auth.TokenManager, bcryptCost int, logger *zap.Logger) *OperatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperatorService{
		operators:  operators,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// TokenManager exposes the manager for middleware wiring.
func (s *OperatorService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// Register adds an operator to the roster.
func (s *OperatorService) Register(ctx context.Context, email, displayName, password string) (*domain.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password required", nil)
	}

	if _, err := s.operators.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("operator already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	operator := &domain.Operator{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: hash,
		Active:       true,
	}
	if err := s.operators.Create(ctx, operator); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("operator registered", zap.String("operator_id", operator.ID))
	return operator, nil
}

// Login verifies credentials and issues an access token.
func (s *OperatorService) Login(ctx context.Context, email, password string) (string, time.Time, *domain.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	operator, err := s.operators.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return "", time.Time{}, nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(operator.PasswordHash, password); err != nil {
		return "", time.Time{}, nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !operator.Active {
		return "", time.Time{}, nil, apperrors.NewForbidden("operator deactivated")
	}

	token, expiresAt, err := s.tokens.GenerateToken(operator.ID, domain.SubjectTypeOperator)
	if err != nil {
		return "", time.Time{}, nil, apperrors.MapError(err)
	}
	return token, expiresAt, operator, nil
}

// IssueRequesterToken mints a token for an upstream transport acting on
// behalf of a requester. The requester id is opaque to this service.
func (s *OperatorService) IssueRequesterToken(requesterID string) (string, time.Time, error) {
	requesterID = strings.TrimSpace(requesterID)
	if requesterID == "" {
		return "", time.Time{}, apperrors.NewValidationError("requester_id required", nil)
	}
	token, expiresAt, err := s.tokens.GenerateToken(requesterID, domain.SubjectTypeRequester)
	if err != nil {
		return "", time.Time{}, apperrors.MapError(err)
	}
	return token, expiresAt, nil
}
