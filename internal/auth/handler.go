package auth

import (
	"krishi-backend/internal/api"

	"github.com/gofiber/fiber/v2"
)

func RegisterHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterInput
		if err := api.Parse(c, &body); err != nil {
			return err
		}
		sess, err := svc.Register(c.UserContext(), body)
		if err != nil {
			return err
		}
		return api.Created(c, "User registered successfully", sess)
	}
}

func LoginHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginInput
		if err := api.Parse(c, &body); err != nil {
			return err
		}
		sess, err := svc.Login(c.UserContext(), body)
		if err != nil {
			return err
		}
		return api.OK(c, "Login successful", sess)
	}
}

func MeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := svc.Me(c.UserContext(), ActorFrom(c).ID)
		if err != nil {
			return err
		}
		return api.OK(c, "", user)
	}
}
