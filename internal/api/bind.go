package api

import (
	"krishi-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// Parse decodes the JSON body into dst. Inputs are validated by the services
// that receive them, so handlers only Parse.
func Parse(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("Invalid request body", nil)
	}
	return nil
}
