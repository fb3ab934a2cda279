package dto

import (
	"time"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// EngineerRequest is used for create and partial update.
type EngineerRequest struct {
	Name           *string  `json:"name" validate:"omitempty,max=200"`
	Phone          *string  `json:"phone" validate:"omitempty,max=40"`
	CommissionRate *float64 `json:"commission_rate" validate:"omitempty,gte=0,lte=100"`
}

// EngineerResponse describes an engineer.
type EngineerResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          *string   `json:"phone"`
	CommissionRate float64   `json:"commission_rate"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewEngineerResponse maps an engineer.
func NewEngineerResponse(e *domain.Engineer) EngineerResponse {
	return EngineerResponse{
		ID:             e.ID,
		Name:           e.Name,
		Phone:          e.Phone,
		CommissionRate: e.CommissionRate,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
