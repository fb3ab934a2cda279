package domain

import "time"

// Session describes an issued access token.
type Session struct {
	StaffID   string
	Role      StaffRole
	Token     string
	ExpiresAt time.Time
}
