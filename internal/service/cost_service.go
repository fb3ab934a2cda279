package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/repository"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

const minCostQuantity = 0.01

// CostService manages maintenance cost lines on tickets.
type CostService struct {
	tickets repository.TicketRepository
	costs   repository.CostRepository
	history repository.TicketHistoryRepository
	logger  *zap.Logger
}

// CostInput describes a new cost line.
type CostInput struct {
	Description string
	Quantity    float64
	UnitPrice   float64
}

// CostSummary is a ticket's cost lines and their total.
type CostSummary struct {
	Items []domain.MaintenanceCost
	Total float64
}

// NewCostService constructs the service.
func NewCostService(tickets repository.TicketRepository, costs repository.CostRepository, history repository.TicketHistoryRepository, logger *zap.Logger) *CostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CostService{tickets: tickets, costs: costs, history: history, logger: logger}
}

// List returns a ticket's cost lines oldest first with their total.
func (s *CostService) List(ctx context.Context, ticketID string) (*CostSummary, error) {
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}
	items, err := s.costs.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return &CostSummary{Items: items, Total: domain.TotalCost(items)}, nil
}

// Add appends a cost line to a ticket.
func (s *CostService) Add(ctx context.Context, actor *domain.StaffMember, ticketID string, input CostInput) (*domain.MaintenanceCost, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", map[string]any{"field": "description"})
	}
	if input.Quantity < minCostQuantity {
		return nil, apperrors.NewValidationError("quantity must be at least 0.01", map[string]any{"field": "quantity"})
	}
	if input.UnitPrice < 0 {
		return nil, apperrors.NewValidationError("unit price cannot be negative", map[string]any{"field": "unit_price"})
	}
	if err := s.ensureTicket(ctx, ticketID); err != nil {
		return nil, err
	}

	item := &domain.MaintenanceCost{
		TicketID:    ticketID,
		Description: description,
		Quantity:    input.Quantity,
		UnitPrice:   input.UnitPrice,
	}
	if err := s.costs.Create(ctx, item); err != nil {
		return nil, err
	}
	s.record(ctx, actor, ticketID, nil, map[string]any{
		"cost_id":     item.ID,
		"description": item.Description,
		"line_total":  domain.RoundMoney(item.LineTotal()),
	})
	return item, nil
}

// Delete removes one cost line from a ticket.
func (s *CostService) Delete(ctx context.Context, actor *domain.StaffMember, ticketID, costID string) error {
	if err := s.costs.Delete(ctx, ticketID, costID); err != nil {
		return notFoundOr(err, "cost item", costID)
	}
	s.record(ctx, actor, ticketID, map[string]any{"cost_id": costID}, nil)
	return nil
}

func (s *CostService) ensureTicket(ctx context.Context, ticketID string) error {
	_, err := s.tickets.GetByID(ctx, ticketID)
	return notFoundOr(err, "ticket", ticketID)
}

func (s *CostService) record(ctx context.Context, actor *domain.StaffMember, ticketID string, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID(actor),
		ChangeType:  domain.ChangeTypeCost,
		OldValue:    oldValue,
		NewValue:    newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record cost history", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}
