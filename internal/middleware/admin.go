package middleware

import (
	"github.com/gofiber/fiber/v2"

	"fintrack/internal/apperror"
	"fintrack/internal/database"
)

func AdminMiddleware(c *fiber.Ctx) error {
	if CurrentUser(c).Role != database.RoleAdmin {
		return apperror.NewForbidden("Forbidden: admin access required")
	}

	return c.Next()
}
