package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// EngineerOrder selects list ordering.
type EngineerOrder string

const (
	EngineerOrderNewest EngineerOrder = "newest"
	EngineerOrderName   EngineerOrder = "name"
)

// EngineerRepository handles persistence for engineers.
type EngineerRepository interface {
	Create(ctx context.Context, engineer *domain.Engineer) error
	Update(ctx context.Context, engineer *domain.Engineer) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Engineer, error)
	List(ctx context.Context, order EngineerOrder) ([]domain.Engineer, error)
}

type engineerRepository struct {
	pool *pgxpool.Pool
}

// NewEngineerRepository instantiates the repository.
func NewEngineerRepository(pool *pgxpool.Pool) EngineerRepository {
	return &engineerRepository{pool: pool}
}

func (r *engineerRepository) Create(ctx context.Context, engineer *domain.Engineer) error {
	const query = `
        INSERT INTO engineers (name, phone, commission_rate)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		engineer.Name,
		engineer.Phone,
		engineer.CommissionRate,
	).Scan(&engineer.ID, &engineer.CreatedAt, &engineer.UpdatedAt)
}

func (r *engineerRepository) Update(ctx context.Context, engineer *domain.Engineer) error {
	const query = `
        UPDATE engineers SET name=$1, phone=$2, commission_rate=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		engineer.Name,
		engineer.Phone,
		engineer.CommissionRate,
		engineer.ID,
	).Scan(&engineer.UpdatedAt)
}

func (r *engineerRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM engineers WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *engineerRepository) GetByID(ctx context.Context, id string) (*domain.Engineer, error) {
	const query = `
        SELECT id, name, phone, commission_rate::float8, created_at, updated_at
        FROM engineers WHERE id=$1`
	var engineer domain.Engineer
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&engineer.ID,
		&engineer.Name,
		&engineer.Phone,
		&engineer.CommissionRate,
		&engineer.CreatedAt,
		&engineer.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &engineer, nil
}

func (r *engineerRepository) List(ctx context.Context, order EngineerOrder) ([]domain.Engineer, error) {
	query := `SELECT id, name, phone, commission_rate::float8, created_at, updated_at FROM engineers`
	if order == EngineerOrderName {
		query += ` ORDER BY name ASC`
	} else {
		query += ` ORDER BY created_at DESC`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Engineer
	for rows.Next() {
		var engineer domain.Engineer
		if err := rows.Scan(
			&engineer.ID,
			&engineer.Name,
			&engineer.Phone,
			&engineer.CommissionRate,
			&engineer.CreatedAt,
			&engineer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, engineer)
	}
	return result, rows.Err()
}
