package middleware

import (
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-service/internal/models"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired admits callers whose token carries the admin role or whose
// email is on the configured admin list. Must run after JWTProtected.
func AdminRequired(isAdminEmail func(email string) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := Claims(c)
		if !ok {
			return unauthorized(c)
		}

		if claims.Role == models.RoleAdmin {
			return c.Next()
		}
		if isAdminEmail != nil && isAdminEmail(claims.Email) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error:      true,
			Message:    "Admin access required",
			StatusCode: fiber.StatusForbidden,
		})
	}
}
