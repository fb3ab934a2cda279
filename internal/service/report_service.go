package service

import (
	"context"

	"github.com/spec-kit/repair-desk/internal/config"
	"github.com/spec-kit/repair-desk/internal/domain"
	"github.com/spec-kit/repair-desk/internal/report"
	"github.com/spec-kit/repair-desk/internal/repository"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// ReportService builds the accounts report.
type ReportService struct {
	tickets repository.TicketRepository
	cfg     config.ReportConfig
}

// NewReportService constructs the service.
func NewReportService(tickets repository.TicketRepository, cfg config.ReportConfig) *ReportService {
	return &ReportService{tickets: tickets, cfg: cfg}
}

// MonthlyEngineerTotals aggregates repaired ticket costs per engineer and
// month. from and to are optional inclusive YYYY-MM bounds.
func (s *ReportService) MonthlyEngineerTotals(ctx context.Context, from, to string) ([]domain.EngineerMonthlyTotal, error) {
	loc := s.cfg.Location()
	start, end, err := report.MonthRange(from, to, loc)
	if err != nil {
		return nil, apperrors.NewValidationError("months must use the YYYY-MM format", map[string]any{"from": from, "to": to})
	}
	if start != nil && end != nil && !start.Before(*end) {
		return nil, apperrors.NewValidationError("from must not be after to", map[string]any{"from": from, "to": to})
	}

	rows, err := s.tickets.ListRepairedCosts(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return report.MonthlyTotals(rows, loc, s.cfg.Locale), nil
}
