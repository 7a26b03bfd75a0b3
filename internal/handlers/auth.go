package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"fintrack/internal/apperror"
	"fintrack/internal/config"
	"fintrack/internal/middleware"
	"fintrack/internal/platform/session"
)

const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/auth"
)

func setRefreshCookie(c *fiber.Ctx, token string, expires time.Time) {
	cfg := c.Locals("config").(*config.Config)

	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func clearRefreshCookie(c *fiber.Ctx) {
	setRefreshCookie(c, "", time.Unix(0, 0))
}

func Register(c *fiber.Ctx) error {
	var input session.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return apperror.InvalidJSON(err)
	}
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Password = strings.TrimSpace(input.Password)
	if err := validate(&input); err != nil {
		return err
	}

	user, err := sessionService(c).Register(c.UserContext(), input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(session.ToRegisterResponse(user))
}

func Login(c *fiber.Ctx) error {
	var input session.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return apperror.InvalidJSON(err)
	}
	input.Email = strings.TrimSpace(input.Email)
	input.Password = strings.TrimSpace(input.Password)
	if err := validate(&input); err != nil {
		return err
	}

	input.UserAgent = c.Get(fiber.HeaderUserAgent)
	input.IPAddress = c.IP()

	result, err := sessionService(c).Login(c.UserContext(), input)
	if err != nil {
		return err
	}

	setRefreshCookie(c, result.RefreshToken, result.RefreshTokenExpires)

	return c.JSON(session.ToLoginResponse(result))
}

func RefreshToken(c *fiber.Ctx) error {
	token := c.Cookies(refreshCookieName)
	if token == "" {
		return session.ErrMissingRefreshToken
	}

	result, err := sessionService(c).Refresh(c.UserContext(), session.RefreshInput{
		RefreshToken: token,
		UserAgent:    c.Get(fiber.HeaderUserAgent),
		IPAddress:    c.IP(),
	})
	if err != nil {
		return err
	}

	setRefreshCookie(c, result.RefreshToken, result.RefreshTokenExpires)

	return c.JSON(session.ToLoginResponse(result))
}

func ForgotPassword(c *fiber.Ctx) error {
	var input session.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return apperror.InvalidJSON(err)
	}
	input.Email = strings.TrimSpace(input.Email)
	if err := validate(&input); err != nil {
		return err
	}

	err := sessionService(c).ForgotPassword(c.UserContext(), input.Email, c.Get(fiber.HeaderAcceptLanguage))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password reset link sent to your registered email."})
}

func ResetPassword(c *fiber.Ctx) error {
	var input session.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return apperror.InvalidJSON(err)
	}
	input.Token = strings.TrimSpace(input.Token)
	input.NewPassword = strings.TrimSpace(input.NewPassword)
	if err := validate(&input); err != nil {
		return err
	}

	if err := sessionService(c).ResetPassword(c.UserContext(), input.Token, input.NewPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Password reset successful"})
}

func Logout(c *fiber.Ctx) error {
	if err := sessionService(c).Logout(c.UserContext(), c.Cookies(refreshCookieName)); err != nil {
		return err
	}

	clearRefreshCookie(c)

	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}

func ListSessions(c *fiber.Ctx) error {
	sessions, err := sessionService(c).ListSessions(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(sessions)
}

func RevokeSession(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Invalid session id")
	if err != nil {
		return err
	}

	if err := sessionService(c).RevokeSession(c.UserContext(), middleware.CurrentUser(c).ID, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
