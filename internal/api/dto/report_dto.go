package dto

import "github.com/spec-kit/repair-desk/internal/domain"

// AccountsQuery bounds the accounts report by month.
type AccountsQuery struct {
	From string `query:"from" json:"from" validate:"omitempty,datetime=2006-01"`
	To   string `query:"to" json:"to" validate:"omitempty,datetime=2006-01"`
}

// EngineerMonthlyTotalResponse is one row of the accounts report.
type EngineerMonthlyTotalResponse struct {
	EngineerID     string  `json:"engineer_id"`
	EngineerName   string  `json:"engineer_name"`
	Month          string  `json:"month"`
	MonthLabel     string  `json:"month_label"`
	TotalCost      float64 `json:"total_cost"`
	TicketCount    int     `json:"ticket_count"`
	CommissionRate float64 `json:"commission_rate"`
	Commission     float64 `json:"commission"`
}

// NewMonthlyTotalResponses maps report rows.
func NewMonthlyTotalResponses(rows []domain.EngineerMonthlyTotal) []EngineerMonthlyTotalResponse {
	out := make([]EngineerMonthlyTotalResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, EngineerMonthlyTotalResponse{
			EngineerID:     row.EngineerID,
			EngineerName:   row.EngineerName,
			Month:          row.Month,
			MonthLabel:     row.MonthLabel,
			TotalCost:      row.TotalCost,
			TicketCount:    row.TicketCount,
			CommissionRate: row.CommissionRate,
			Commission:     row.Commission,
		})
	}
	return out
}
