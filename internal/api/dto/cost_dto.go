package dto

import (
	"time"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// CreateCostRequest payload.
type CreateCostRequest struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    float64 `json:"quantity" validate:"gte=0.01"`
	UnitPrice   float64 `json:"unit_price" validate:"gte=0"`
}

// CostResponse describes a cost line.
type CostResponse struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
	LineTotal   float64   `json:"line_total"`
	CreatedAt   time.Time `json:"created_at"`
}

// CostListResponse is a ticket's cost lines with their total.
type CostListResponse struct {
	Items []CostResponse `json:"items"`
	Total float64        `json:"total"`
}

// NewCostResponses maps cost lines.
func NewCostResponses(items []domain.MaintenanceCost) []CostResponse {
	out := make([]CostResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewCostResponse(item))
	}
	return out
}

// NewCostResponse maps one cost line.
func NewCostResponse(item domain.MaintenanceCost) CostResponse {
	return CostResponse{
		ID:          item.ID,
		TicketID:    item.TicketID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		LineTotal:   domain.RoundMoney(item.LineTotal()),
		CreatedAt:   item.CreatedAt,
	}
}
