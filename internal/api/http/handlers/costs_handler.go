package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/api/dto"
	"github.com/spec-kit/repair-desk/internal/service"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// CostsHandler manages a ticket's maintenance cost lines.
type CostsHandler struct {
	service *service.CostService
}

// NewCostsHandler constructs handler.
func NewCostsHandler(costService *service.CostService) *CostsHandler {
	return &CostsHandler{service: costService}
}

// List GET /tickets/:id/costs.
func (h *CostsHandler) List(c *fiber.Ctx) error {
	summary, err := h.service.List(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CostListResponse{
		Items: dto.NewCostResponses(summary.Items),
		Total: summary.Total,
	}})
}

// Add POST /tickets/:id/costs.
func (h *CostsHandler) Add(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateCostRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	item, err := h.service.Add(c.UserContext(), staff, c.Params("id"), service.CostInput{
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewCostResponse(*item)})
}

// Delete DELETE /tickets/:id/costs/:costId.
func (h *CostsHandler) Delete(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), staff, c.Params("id"), c.Params("costId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
