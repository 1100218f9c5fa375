package obs

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders fiber errors as {"error": msg} and hides anything else
// behind a 500 after logging it.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var e *fiber.Error
	if errors.As(err, &e) {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}
	Logger.Error("unexpected_error", "method", c.Method(), "path", c.Path(), "err", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected server error",
	})
}
