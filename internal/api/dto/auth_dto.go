package dto

import (
	"time"

	"github.com/spec-kit/repair-desk/internal/domain"
)

// StaffLoginRequest payload.
type StaffLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// CreateStaffRequest payload for admins creating accounts.
type CreateStaffRequest struct {
	Name     string           `json:"name" validate:"required,max=200"`
	Email    string           `json:"email" validate:"required,email"`
	Password string           `json:"password" validate:"required,min=8,max=72"`
	Role     domain.StaffRole `json:"role" validate:"omitempty,oneof=ADMIN STAFF"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Staff     StaffResponse `json:"staff"`
}

// StaffResponse describes a staff account.
type StaffResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Role      domain.StaffRole `json:"role"`
	Active    bool             `json:"active"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewStaffResponse maps a staff member.
func NewStaffResponse(staff *domain.StaffMember) StaffResponse {
	return StaffResponse{
		ID:        staff.ID,
		Name:      staff.Name,
		Email:     staff.Email,
		Role:      staff.Role,
		Active:    staff.Active,
		CreatedAt: staff.CreatedAt,
	}
}
