package auth

import (
	"strings"

	"krishi-backend/internal/apperr"
	"krishi-backend/internal/config"
	"krishi-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUsernameKey = "username"
)

func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", apperr.Authentication("Authorization header missing")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", apperr.Authentication("Authorization header must be 'Bearer <token>'")
	}
	return parts[1], nil
}

// JWTMiddleware rejects requests without a valid bearer token.
func JWTMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return err
		}
		claims, err := ParseToken(cfg.JWTSecret, tokenStr)
		if err != nil {
			return apperr.Authentication("Invalid or expired token")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUsernameKey, claims.Username)
		return c.Next()
	}
}

// OptionalJWT sets the caller identity when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalJWT(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, err := bearerToken(c)
		if err != nil {
			return c.Next()
		}
		if claims, err := ParseToken(cfg.JWTSecret, tokenStr); err == nil {
			c.Locals(CtxUserIDKey, claims.UserID)
			c.Locals(CtxUsernameKey, claims.Username)
		}
		return c.Next()
	}
}

// ActorFrom returns the caller set by the JWT middleware, or an anonymous
// actor.
func ActorFrom(c *fiber.Ctx) models.Actor {
	id, _ := c.Locals(CtxUserIDKey).(string)
	name, _ := c.Locals(CtxUsernameKey).(string)
	return models.Actor{ID: id, Name: name}
}
