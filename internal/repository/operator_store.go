package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idzvilla/vin-car/internal/domain"
)

// OperatorStore encapsulates operator roster persistence.
type OperatorStore interface {
	Create(ctx context.Context, operator *domain.Operator) error
	GetByID(ctx context.Context, id string) (*domain.Operator, error)
	GetByEmail(ctx context.Context, email string) (*domain.Operator, error)
}

type postgresOperatorStore struct {
	pool *pgxpool.Pool
}

// NewPostgresOperatorStore instantiates the pgx-backed store.
func NewPostgresOperatorStore(pool *pgxpool.Pool) OperatorStore {
	return &postgresOperatorStore{pool: pool}
}

const operatorColumns = `id, email, display_name, password_hash, active, created_at, updated_at`

func (s *postgresOperatorStore) Create(ctx context.Context, operator *domain.Operator) error {
	const query = `
        INSERT INTO operators (email, display_name, password_hash, active)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`
	return s.pool.QueryRow(ctx, query,
		operator.Email,
		operator.DisplayName,
		operator.PasswordHash,
		operator.Active,
	).Scan(&operator.ID, &operator.CreatedAt, &operator.UpdatedAt)
}

func (s *postgresOperatorStore) GetByID(ctx context.Context, id string) (*domain.Operator, error) {
	const query = `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`
	return s.fetchSingle(ctx, query, id)
}

func (s *postgresOperatorStore) GetByEmail(ctx context.Context, email string) (*domain.Operator, error) {
	const query = `SELECT ` + operatorColumns + ` FROM operators WHERE email = $1`
	return s.fetchSingle(ctx, query, email)
}

func (s *postgresOperatorStore) fetchSingle(ctx context.Context, query string, arg any) (*domain.Operator, error) {
	var operator domain.Operator
	if err := s.pool.QueryRow(ctx, query, arg).Scan(
		&operator.ID,
		&operator.Email,
		&operator.DisplayName,
		&operator.PasswordHash,
		&operator.Active,
		&operator.CreatedAt,
		&operator.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &operator, nil
}
