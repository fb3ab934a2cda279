package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// DefaultListLimit applies when TicketFilter.Limit is zero.
const DefaultListLimit = 50

// TicketFilter captures staff search parameters. A negative Limit returns
// every matching ticket.
type TicketFilter struct {
	Statuses      []domain.TicketStatus
	Priorities    []domain.TicketPriority
	EngineerID    *string
	CustomerEmail *string
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListRepairedCosts returns repaired, engineer-assigned tickets whose line
	// items sum to a positive cost, created within [from, to).
	ListRepairedCosts(ctx context.Context, from, to *time.Time) ([]domain.RepairedTicketCost, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.ticket_ref, t.customer_name, t.customer_phone, t.customer_email, t.customer_address,
        t.device_type, t.serial_number, t.fault_description, t.priority, t.status, t.attachment_url,
        t.assigned_engineer_id, e.name, t.technical_inspection_notes, t.repair_notes, t.handover_notes,
        t.before_repair_video_url, t.repair_video_url, t.created_at, t.updated_at`

const ticketFrom = ` FROM tickets t LEFT JOIN engineers e ON e.id = t.assigned_engineer_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_ref, customer_name, customer_phone, customer_email, customer_address,
            device_type, serial_number, fault_description, priority, status, attachment_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Ref,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.CustomerEmail,
		ticket.CustomerAddress,
		ticket.DeviceType,
		ticket.SerialNumber,
		ticket.FaultDescription,
		ticket.Priority,
		ticket.Status,
		ticket.AttachmentURL,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET customer_name=$1, customer_phone=$2, customer_email=$3, customer_address=$4,
            device_type=$5, serial_number=$6, fault_description=$7, priority=$8, status=$9,
            attachment_url=$10, assigned_engineer_id=$11, technical_inspection_notes=$12,
            repair_notes=$13, handover_notes=$14, before_repair_video_url=$15, repair_video_url=$16,
            updated_at=NOW()
        WHERE id=$17
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.CustomerName,
		ticket.CustomerPhone,
		ticket.CustomerEmail,
		ticket.CustomerAddress,
		ticket.DeviceType,
		ticket.SerialNumber,
		ticket.FaultDescription,
		ticket.Priority,
		ticket.Status,
		ticket.AttachmentURL,
		ticket.AssignedEngineerID,
		ticket.TechnicalInspectionNotes,
		ticket.RepairNotes,
		ticket.HandoverNotes,
		ticket.BeforeRepairVideoURL,
		ticket.RepairVideoURL,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ticketFrom + ` WHERE t.id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	ticket, err := scanTicket(row)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.EngineerID != nil {
		args = append(args, *filter.EngineerID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_engineer_id=$%d", len(args)))
	}
	if filter.CustomerEmail != nil {
		args = append(args, strings.ToLower(strings.TrimSpace(*filter.CustomerEmail)))
		clauses = append(clauses, fmt.Sprintf("LOWER(t.customer_email)=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at < $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		p := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(t.ticket_ref) LIKE %s OR LOWER(t.customer_name) LIKE %s OR t.customer_phone LIKE %s OR LOWER(t.device_type) LIKE %s)",
			p, p, p, p))
	}

	query := fmt.Sprintf(`SELECT %s%s WHERE %s ORDER BY t.created_at DESC`,
		ticketColumns, ticketFrom, strings.Join(clauses, " AND "))
	if filter.Limit >= 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = DefaultListLimit
		}
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) ListRepairedCosts(ctx context.Context, from, to *time.Time) ([]domain.RepairedTicketCost, error) {
	query := `
        SELECT t.id, e.id, e.name, e.commission_rate::float8, t.created_at,
               COALESCE(SUM(c.quantity * c.unit_price), 0)::float8 AS total
        FROM tickets t
        JOIN engineers e ON e.id = t.assigned_engineer_id
        LEFT JOIN maintenance_costs c ON c.ticket_id = t.id
        WHERE t.status = $1`
	args := []any{domain.TicketStatusRepaired}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(" AND t.created_at >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(" AND t.created_at < $%d", len(args))
	}
	query += `
        GROUP BY t.id, e.id, e.name, e.commission_rate, t.created_at
        HAVING COALESCE(SUM(c.quantity * c.unit_price), 0) > 0
        ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RepairedTicketCost
	for rows.Next() {
		var row domain.RepairedTicketCost
		if err := rows.Scan(
			&row.TicketID,
			&row.EngineerID,
			&row.EngineerName,
			&row.CommissionRate,
			&row.CreatedAt,
			&row.TotalCost,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Ref,
		&ticket.CustomerName,
		&ticket.CustomerPhone,
		&ticket.CustomerEmail,
		&ticket.CustomerAddress,
		&ticket.DeviceType,
		&ticket.SerialNumber,
		&ticket.FaultDescription,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AttachmentURL,
		&ticket.AssignedEngineerID,
		&ticket.EngineerName,
		&ticket.TechnicalInspectionNotes,
		&ticket.RepairNotes,
		&ticket.HandoverNotes,
		&ticket.BeforeRepairVideoURL,
		&ticket.RepairVideoURL,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
