package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-desk/internal/domain"
	apperrors "github.com/spec-kit/repair-desk/pkg/util/errorutil"
)

// RequireStaffRole ensures the staff principal has one of the allowed roles.
// With no roles given any authenticated staff member passes.
func RequireStaffRole(allowed ...domain.StaffRole) fiber.Handler {
	allowedSet := make(map[domain.StaffRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Staff.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAdmin is shorthand for RequireStaffRole(domain.StaffRoleAdmin).
func RequireAdmin() fiber.Handler {
	return RequireStaffRole(domain.StaffRoleAdmin)
}
