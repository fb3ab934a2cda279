package domain

import "time"

// Engineer is a repair technician tickets can be assigned to. Engineers do not log in.
type Engineer struct {
	ID             string
	Name           string
	Phone          *string
	CommissionRate float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
