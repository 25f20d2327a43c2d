package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idzvilla/vin-car/internal/domain"
)

// SubscriptionStore tracks prepaid report balances per requester.
type SubscriptionStore interface {
	Get(ctx context.Context, requesterID string) (*domain.Subscription, error)

	// Grant adds reports to the requester's balance, creating the
	// subscription when absent.
	Grant(ctx context.Context, requesterID string, reports int) (*domain.Subscription, error)

	// Consume atomically decrements the balance by one. Returns
	// ErrQuotaExhausted when no balance remains.
	Consume(ctx context.Context, requesterID string) (*domain.Subscription, error)

	// Refund returns one consumed report to the balance without touching
	// the lifetime total.
	Refund(ctx context.Context, requesterID string) error
}

type postgresSubscriptionStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSubscriptionStore instantiates the pgx-backed store.
func NewPostgresSubscriptionStore(pool *pgxpool.Pool) SubscriptionStore {
	return &postgresSubscriptionStore{pool: pool}
}

const subscriptionColumns = `requester_id, reports_remaining, total_reports, created_at, updated_at`

func (s *postgresSubscriptionStore) Get(ctx context.Context, requesterID string) (*domain.Subscription, error) {
	const query = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE requester_id = $1`
	return s.scanRow(s.pool.QueryRow(ctx, query, requesterID))
}

func (s *postgresSubscriptionStore) Grant(ctx context.Context, requesterID string, reports int) (*domain.Subscription, error) {
	const query = `
        INSERT INTO subscriptions (requester_id, reports_remaining, total_reports)
        VALUES ($1, $2, $2)
        ON CONFLICT (requester_id) DO UPDATE
        SET reports_remaining = subscriptions.reports_remaining + EXCLUDED.reports_remaining,
            total_reports = subscriptions.total_reports + EXCLUDED.total_reports,
            updated_at = NOW()
        RETURNING ` + subscriptionColumns
	return s.scanRow(s.pool.QueryRow(ctx, query, requesterID, reports))
}

// Consume decrements with a balance predicate so two concurrent submissions
// cannot both spend the last report.
func (s *postgresSubscriptionStore) Consume(ctx context.Context, requesterID string) (*domain.Subscription, error) {
	const query = `
        UPDATE subscriptions
        SET reports_remaining = reports_remaining - 1, updated_at = NOW()
        WHERE requester_id = $1 AND reports_remaining > 0
        RETURNING ` + subscriptionColumns
	sub, err := s.scanRow(s.pool.QueryRow(ctx, query, requesterID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrQuotaExhausted
		}
		return nil, err
	}
	return sub, nil
}

func (s *postgresSubscriptionStore) Refund(ctx context.Context, requesterID string) error {
	const query = `
        UPDATE subscriptions
        SET reports_remaining = reports_remaining + 1, updated_at = NOW()
        WHERE requester_id = $1`
	cmd, err := s.pool.Exec(ctx, query, requesterID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresSubscriptionStore) scanRow(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	if err := row.Scan(
		&sub.RequesterID,
		&sub.ReportsRemaining,
		&sub.TotalReports,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}
