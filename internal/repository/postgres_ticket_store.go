package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idzvilla/vin-car/internal/domain"
)

const ticketColumns = `id, vin, requester_id, status, assignee_id, artifact_ref, created_at, updated_at`

// uniqueViolation is the Postgres error code raised by the partial unique
// index on open tickets.
const uniqueViolation = "23505"

type postgresTicketStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketStore instantiates the pgx-backed store.
func NewPostgresTicketStore(pool *pgxpool.Pool) TicketStore {
	return &postgresTicketStore{pool: pool}
}

func (s *postgresTicketStore) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (vin, requester_id, status)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, query,
		ticket.VIN,
		ticket.RequesterID,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateOpenTicket
		}
		return err
	}
	return nil
}

func (s *postgresTicketStore) FindOpenDuplicate(ctx context.Context, vin, requesterID string) (*domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets
        WHERE vin = $1 AND requester_id = $2 AND status IN ('NEW', 'TAKEN')`
	return s.fetchSingle(ctx, query, vin, requesterID)
}

func (s *postgresTicketStore) FindByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT ` + ticketColumns + `
        FROM tickets WHERE id = $1`
	return s.fetchSingle(ctx, query, id)
}

// UpdateStatus relies on the status predicate in the WHERE clause for its
// compare-and-set guarantee: of two concurrent claims on the same NEW
// ticket, exactly one matches the row.
func (s *postgresTicketStore) UpdateStatus(ctx context.Context, id int64, update StatusUpdate) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets
        SET status = $3,
            assignee_id = COALESCE(assignee_id, $4),
            artifact_ref = COALESCE($5, artifact_ref),
            updated_at = NOW()
        WHERE id = $1 AND status = $2
        RETURNING ` + ticketColumns
	ticket, err := s.scanRow(s.pool.QueryRow(ctx, query,
		id,
		update.Expected,
		update.Next,
		update.AssigneeID,
		update.ArtifactRef,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPreconditionFailed
		}
		return nil, err
	}
	return ticket, nil
}

func (s *postgresTicketStore) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := s.scanRow(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func (s *postgresTicketStore) scanRow(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.VIN,
		&ticket.RequesterID,
		&ticket.Status,
		&ticket.AssigneeID,
		&ticket.ArtifactRef,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
