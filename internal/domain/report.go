package domain

import "time"

// EngineerMonthlyTotal is one row of the accounts report.
type EngineerMonthlyTotal struct {
	EngineerID     string
	EngineerName   string
	Month          string // YYYY-MM
	MonthLabel     string
	TotalCost      float64
	TicketCount    int
	CommissionRate float64
	Commission     float64
}

// RepairedTicketCost is the input row for the accounts report.
type RepairedTicketCost struct {
	TicketID       string
	EngineerID     string
	EngineerName   string
	CommissionRate float64
	CreatedAt      time.Time
	TotalCost      float64
}
