package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"fintrack/internal/platform/user"
)

func GetAllUsers(c *fiber.Ctx) error {
	users, err := userService(c).List(c.UserContext())
	if err != nil {
		return err
	}

	return c.JSON(users)
}

func GetUserByEmail(c *fiber.Ctx) error {
	type EmailQuery struct {
		Email string `json:"email" validate:"required,email"`
	}

	query := EmailQuery{Email: strings.TrimSpace(c.Query("email"))}
	if err := validate(&query); err != nil {
		return err
	}

	u, err := userService(c).GetUserByEmail(c.UserContext(), query.Email)
	if err != nil {
		return err
	}

	return c.JSON(u)
}

func GetUserByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Invalid user id")
	if err != nil {
		return err
	}

	u, err := userService(c).GetUserByID(c.UserContext(), id)
	if err != nil {
		return err
	}

	return c.JSON(u)
}

func UpdateUserByID(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Invalid user id")
	if err != nil {
		return err
	}

	var input user.UpdateInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	u, err := userService(c).Update(c.UserContext(), id, input)
	if err != nil {
		return err
	}

	return c.JSON(u)
}
