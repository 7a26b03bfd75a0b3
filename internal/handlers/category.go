package handlers

import (
	"github.com/gofiber/fiber/v2"

	"fintrack/internal/middleware"
	"fintrack/internal/platform/category"
)

func CreateCategory(c *fiber.Ctx) error {
	var input category.CreateInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	created, err := categoryService(c).Create(c.UserContext(), middleware.CurrentUser(c).ID, input)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func ListCategories(c *fiber.Ctx) error {
	categories, err := categoryService(c).List(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(categories)
}

func UpdateCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Invalid category id")
	if err != nil {
		return err
	}

	var input category.UpdateInput
	if err := parseBody(c, &input); err != nil {
		return err
	}

	updated, err := categoryService(c).Update(c.UserContext(), middleware.CurrentUser(c).ID, id, input)
	if err != nil {
		return err
	}

	return c.JSON(updated)
}

func DeleteCategory(c *fiber.Ctx) error {
	id, err := paramID(c, "id", "Invalid category id")
	if err != nil {
		return err
	}

	if err := categoryService(c).Delete(c.UserContext(), middleware.CurrentUser(c).ID, id); err != nil {
		return err
	}

	return c.SendStatus(fiber.StatusNoContent)
}
