package audit

import (
	"krishi-backend/internal/api"
	"krishi-backend/internal/apperr"
	"krishi-backend/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// ListAuditLogsHandler lists the caller's own activity, newest first.
// Optional filters: entity_type, entity_id.
func ListAuditLogsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := auth.ActorFrom(c)
		if actor.Anonymous() {
			return apperr.Authentication("Authentication required")
		}

		logs, p, err := svc.List(c.UserContext(), ListFilter{
			UserID:     actor.ID,
			EntityType: c.Query("entity_type"),
			EntityID:   c.Query("entity_id"),
			Page:       c.QueryInt("page", 1),
			Limit:      c.QueryInt("limit", 0),
		})
		if err != nil {
			return apperr.Unexpected("Failed to load audit logs", err)
		}
		return api.Page(c, logs, p)
	}
}
