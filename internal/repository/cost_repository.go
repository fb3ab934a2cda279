package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// CostRepository stores maintenance cost line items.
type CostRepository interface {
	Create(ctx context.Context, item *domain.MaintenanceCost) error
	Delete(ctx context.Context, ticketID, id string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.MaintenanceCost, error)
}

type costRepository struct {
	pool *pgxpool.Pool
}

// NewCostRepository builds repository.
func NewCostRepository(pool *pgxpool.Pool) CostRepository {
	return &costRepository{pool: pool}
}

func (r *costRepository) Create(ctx context.Context, item *domain.MaintenanceCost) error {
	const query = `
        INSERT INTO maintenance_costs (ticket_id, description, quantity, unit_price)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		item.TicketID,
		item.Description,
		item.Quantity,
		item.UnitPrice,
	).Scan(&item.ID, &item.CreatedAt)
}

func (r *costRepository) Delete(ctx context.Context, ticketID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM maintenance_costs WHERE id=$1 AND ticket_id=$2`, id, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *costRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.MaintenanceCost, error) {
	const query = `
        SELECT id, ticket_id, description, quantity::float8, unit_price::float8, created_at
        FROM maintenance_costs WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MaintenanceCost
	for rows.Next() {
		var item domain.MaintenanceCost
		if err := rows.Scan(
			&item.ID,
			&item.TicketID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}
