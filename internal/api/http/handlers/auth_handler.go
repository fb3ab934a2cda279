package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/api/dto"
	"github.com/spec-kit/repair-desk/internal/repository"
	"github.com/spec-kit/repair-desk/internal/service"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// AuthHandler exposes staff authentication and account endpoints.
type AuthHandler struct {
	authService *service.AuthService
	staff       repository.StaffRepository
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, staff repository.StaffRepository) *AuthHandler {
	return &AuthHandler{authService: authService, staff: staff}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.StaffLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Staff:     dto.NewStaffResponse(result.Staff),
	}})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStaffResponse(staff)})
}

// SignOut POST /auth/logout.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.authService.SignOut(c.UserContext(), staff.ID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ChangePassword POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	staff, err := staffPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), staff.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CreateStaff POST /staff.
func (h *AuthHandler) CreateStaff(c *fiber.Ctx) error {
	var req dto.CreateStaffRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	staff, err := h.authService.CreateStaff(c.UserContext(), service.StaffCreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewStaffResponse(staff)})
}

// ListStaff GET /staff.
func (h *AuthHandler) ListStaff(c *fiber.Ctx) error {
	members, err := h.staff.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.StaffResponse, 0, len(members))
	for i := range members {
		items = append(items, dto.NewStaffResponse(&members[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
