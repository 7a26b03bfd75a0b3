package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fintrack/internal/middleware"
	"fintrack/internal/platform/user"
)

func GetCurrentUser(c *fiber.Ctx) error {
	u, err := userService(c).GetUserByID(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(u)
}

// UpdateCurrentUser lets a user edit their own profile. Role and
// verification state are not theirs to change.
func UpdateCurrentUser(c *fiber.Ctx) error {
	type UpdateProfileInput struct {
		Name              *string `json:"name" validate:"omitempty,min=2,max=64,personname"`
		Email             *string `json:"email" validate:"omitempty,email"`
		PreferredCurrency *string `json:"preferredCurrency" validate:"omitempty,currency"`
	}

	var input UpdateProfileInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	u, err := userService(c).Update(c.UserContext(), middleware.CurrentUser(c).ID, user.UpdateInput{
		Name:              input.Name,
		Email:             input.Email,
		PreferredCurrency: input.PreferredCurrency,
	})
	if err != nil {
		return err
	}

	return c.JSON(u)
}
