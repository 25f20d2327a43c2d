package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/idzvilla/vin-car/internal/domain"
	"github.com/idzvilla/vin-car/internal/repository"
	apperrors "github.com/idzvilla/vin-car/pkg/util"
)

// QuotaService manages prepaid report balances. Each accepted submission
// spends one report.
type QuotaService struct {
	subscriptions repository.SubscriptionStore
	logger        *zap.Logger
}

// NewQuotaService constructs the service.
func NewQuotaService(subscriptions repository.SubscriptionStore, logger *zap.Logger) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuotaService{subscriptions: subscriptions, logger: logger}
}

// Balance returns the requester's subscription; a requester without one
// gets a zero balance rather than an error.
func (s *QuotaService) Balance(ctx context.Context, requesterID string) (*domain.Subscription, error) {
	sub, err := s.subscriptions.Get(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &domain.Subscription{RequesterID: requesterID}, nil
		}
		return nil, apperrors.MapError(err)
	}
	return sub, nil
}

// Grant tops up the requester's balance.
func (s *QuotaService) Grant(ctx context.Context, requesterID string, reports int) (*domain.Subscription, error) {
	if reports <= 0 {
		return nil, apperrors.NewValidationError("reports must be positive", nil)
	}
	sub, err := s.subscriptions.Grant(ctx, requesterID, reports)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("reports granted",
		zap.String("requester_id", requesterID),
		zap.Int("reports", reports),
		zap.Int("remaining", sub.ReportsRemaining))
	return sub, nil
}

// Consume spends one report from the balance. The decrement is atomic, so
// two concurrent submissions cannot both spend the last report.
func (s *QuotaService) Consume(ctx context.Context, requesterID string) error {
	sub, err := s.subscriptions.Consume(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrQuotaExhausted) {
			return apperrors.NewQuotaExhausted(map[string]any{"requester_id": requesterID})
		}
		return apperrors.MapError(err)
	}
	s.logger.Debug("report consumed",
		zap.String("requester_id", requesterID),
		zap.Int("remaining", sub.ReportsRemaining))
	return nil
}

// Refund returns one report to the balance after a submission that spent
// it turned out to be a duplicate.
func (s *QuotaService) Refund(ctx context.Context, requesterID string) {
	if err := s.subscriptions.Refund(ctx, requesterID); err != nil {
		s.logger.Warn("report refund failed",
			zap.String("requester_id", requesterID),
			zap.Error(err))
	}
}
