package apperror

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// InvalidJSON wraps a body parsing failure.
func InvalidJSON(err error) *Error {
	return Wrap(BadRequest, "Invalid JSON payload", err)
}

// Handler returns the fiber error handler rendering every error returned by
// a route. The error chain is only exposed outside production.
func Handler(production bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := KindOf(err).Status()
		message := "Internal Server Error"

		var appErr *Error
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &appErr):
			message = appErr.Message
			if appErr.Details != nil {
				return c.Status(status).JSON(fiber.Map{
					"status":  "fail",
					"error":   appErr.Message,
					"details": appErr.Details,
				})
			}
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		case status == fiber.StatusConflict:
			message = "Duplicate field value entered"
		case status == fiber.StatusNotFound:
			message = "Resource not found"
		}

		body := fiber.Map{"status": "fail", "message": message}
		if status >= fiber.StatusInternalServerError {
			body["status"] = "error"
			log.Errorw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"request_id", c.Locals("requestid"),
				"error", err,
			)
			if appErr == nil || appErr.Kind == Internal {
				body["message"] = "Internal Server Error"
			}
		}
		if !production {
			body["stack"] = err.Error()
		}

		return c.Status(status).JSON(body)
	}
}
