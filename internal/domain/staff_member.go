package domain

import "time"

// StaffRole enumerates back-office roles.
type StaffRole string

const (
	StaffRoleStaff StaffRole = "STAFF"
	StaffRoleAdmin StaffRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r StaffRole) Valid() bool {
	return r == StaffRoleStaff || r == StaffRoleAdmin
}

// StaffMember is a back-office account able to sign in.
type StaffMember struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         StaffRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
