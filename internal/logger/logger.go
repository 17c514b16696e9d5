// Package logger configures the process-wide slog logger and the HTTP
// request log.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"krishi-backend/internal/api"
	"krishi-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// New returns a JSON logger for production and a text logger otherwise.
func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if env == "production" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup installs the logger as slog's default and returns it.
func Setup(env, level string) *slog.Logger {
	l := New(os.Stdout, env, level).With(slog.String("service", "krishi-backend"))
	slog.SetDefault(l)
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RequestLogger logs one line per request. It must run after the requestid
// middleware to pick up the id.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// the app's ErrorHandler has not run yet, so derive the status
		status := c.Response().StatusCode()
		if err != nil {
			status = api.StatusFor(err)
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			attrs = append(attrs, slog.String("request_id", rid))
		}
		if actor := auth.ActorFrom(c); !actor.Anonymous() {
			attrs = append(attrs, slog.String("user_id", actor.ID))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		slog.LogAttrs(c.UserContext(), level, "HTTP request", attrs...)
		return err
	}
}
