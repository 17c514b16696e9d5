package api

import (
	"krishi-backend/internal/store"

	"github.com/gofiber/fiber/v2"
)

// Envelope is the JSON shape of every response.
type Envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Data       any               `json:"data,omitempty"`
	Count      *int              `json:"count,omitempty"`
	Pagination *store.Pagination `json:"pagination,omitempty"`
	Error      string            `json:"error,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func OK(c *fiber.Ctx, message string, data any) error {
	return c.JSON(Envelope{Success: true, Message: message, Data: data})
}

func Created(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Message: message, Data: data})
}

func Page(c *fiber.Ctx, data any, p store.Pagination) error {
	return c.JSON(Envelope{Success: true, Data: data, Pagination: &p})
}

func Counted[T any](c *fiber.Ctx, data []T) error {
	n := len(data)
	return c.JSON(Envelope{Success: true, Data: data, Count: &n})
}
