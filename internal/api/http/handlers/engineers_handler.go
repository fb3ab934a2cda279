package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/api/dto"
	"github.com/spec-kit/repair-desk/internal/service"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// EngineersHandler manages the engineer roster.
type EngineersHandler struct {
	service *service.EngineerService
}

// NewEngineersHandler constructs handler.
func NewEngineersHandler(engineerService *service.EngineerService) *EngineersHandler {
	return &EngineersHandler{service: engineerService}
}

// List GET /engineers?sort=name.
func (h *EngineersHandler) List(c *fiber.Ctx) error {
	engineers, err := h.service.List(c.UserContext(), c.Query("sort") == "name")
	if err != nil {
		return err
	}
	items := make([]dto.EngineerResponse, 0, len(engineers))
	for i := range engineers {
		items = append(items, dto.NewEngineerResponse(&engineers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /engineers/:id.
func (h *EngineersHandler) Get(c *fiber.Ctx) error {
	engineer, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEngineerResponse(engineer)})
}

// Create POST /engineers.
func (h *EngineersHandler) Create(c *fiber.Ctx) error {
	var req dto.EngineerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	engineer, err := h.service.Create(c.UserContext(), service.EngineerInput{
		Name:           req.Name,
		Phone:          req.Phone,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewEngineerResponse(engineer)})
}

// Update PATCH /engineers/:id.
func (h *EngineersHandler) Update(c *fiber.Ctx) error {
	var req dto.EngineerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	engineer, err := h.service.Update(c.UserContext(), c.Params("id"), service.EngineerInput{
		Name:           req.Name,
		Phone:          req.Phone,
		CommissionRate: req.CommissionRate,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewEngineerResponse(engineer)})
}

// Delete DELETE /engineers/:id. Admin only.
func (h *EngineersHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
