package domain

import (
	"math"
	"time"
)

// MaintenanceCost is one billable line on a ticket.
type MaintenanceCost struct {
	ID          string
	TicketID    string
	Description string
	Quantity    float64
	UnitPrice   float64
	CreatedAt   time.Time
}

// LineTotal returns quantity * unit price.
func (c MaintenanceCost) LineTotal() float64 {
	return c.Quantity * c.UnitPrice
}

// TotalCost sums line totals, rounded to cents.
func TotalCost(items []MaintenanceCost) float64 {
	var sum float64
	for _, item := range items {
		sum += item.LineTotal()
	}
	return RoundMoney(sum)
}

// RoundMoney rounds to two decimals, half away from zero.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
