package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"fintrack/internal/apperror"
	"fintrack/internal/auth"
	"fintrack/internal/config"
)

// AuthUser is the identity carried by a verified access token.
type AuthUser struct {
	ID   uuid.UUID
	Role string
}

var errUnauthorized = apperror.NewUnauthorized("Unauthorized")

// AuthMiddleware verifies the bearer access token and stores the caller in
// c.Locals("user").
func AuthMiddleware(c *fiber.Ctx) error {
	cfg := c.Locals("config").(*config.Config)

	authHeader := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return errUnauthorized
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return errUnauthorized
	}

	signer, ok := c.Locals("signer").(*auth.Signer)
	if !ok {
		signer = auth.NewSigner(cfg)
	}

	claims, err := signer.Verify(token)
	if err != nil {
		return apperror.Wrap(apperror.Unauthorized, "Invalid or expired access token", err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return apperror.Wrap(apperror.Unauthorized, "Invalid or expired access token", err)
	}

	c.Locals("user", AuthUser{ID: userID, Role: claims.Role})

	return c.Next()
}

// CurrentUser returns the caller stored by AuthMiddleware.
func CurrentUser(c *fiber.Ctx) AuthUser {
	user, _ := c.Locals("user").(AuthUser)
	return user
}
