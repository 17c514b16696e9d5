package api

import (
	"errors"
	"log/slog"

	"krishi-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:     fiber.StatusBadRequest,
	apperr.KindStateGuard:     fiber.StatusBadRequest,
	apperr.KindAuthentication: fiber.StatusUnauthorized,
	apperr.KindAuthorization:  fiber.StatusForbidden,
	apperr.KindNotFound:       fiber.StatusNotFound,
	apperr.KindConflict:       fiber.StatusConflict,
	apperr.KindUnexpected:     fiber.StatusInternalServerError,
}

func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return statusByKind[apperr.KindOf(err)]
}

// ErrorHandler renders every error returned by a handler as an Envelope.
// Details of unexpected errors are only exposed when verbose is set.
func ErrorHandler(verbose bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(Envelope{Success: false, Message: fe.Message})
		}

		var ae *apperr.Error
		if errors.As(err, &ae) && ae.Kind != apperr.KindUnexpected {
			return c.Status(statusByKind[ae.Kind]).JSON(Envelope{
				Success: false,
				Message: ae.Message,
				Fields:  ae.Fields,
			})
		}

		slog.Error("unexpected error",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
		env := Envelope{Success: false, Message: "Internal server error"}
		if ae != nil {
			env.Message = ae.Message
		}
		if verbose {
			env.Error = err.Error()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(env)
	}
}
