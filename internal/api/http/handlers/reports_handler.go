package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/api/dto"
	"github.com/spec-kit/repair-desk/internal/service"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// ReportsHandler serves the accounts report.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// Accounts GET /reports/accounts?from=YYYY-MM&to=YYYY-MM.
func (h *ReportsHandler) Accounts(c *fiber.Ctx) error {
	var query dto.AccountsQuery
	if err := c.QueryParser(&query); err != nil {
		return apperrors.NewValidationError("invalid query", nil)
	}
	if err := dto.Validate(query); err != nil {
		return err
	}
	rows, err := h.service.MonthlyEngineerTotals(c.UserContext(), query.From, query.To)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMonthlyTotalResponses(rows)})
}
