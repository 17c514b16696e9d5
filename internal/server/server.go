// Package server assembles the Fiber application: middleware, services and
// routes.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"krishi-backend/internal/api"
	"krishi-backend/internal/audit"
	"krishi-backend/internal/auth"
	"krishi-backend/internal/cache"
	"krishi-backend/internal/config"
	"krishi-backend/internal/database"
	"krishi-backend/internal/listing"
	"krishi-backend/internal/logger"
	"krishi-backend/internal/quotation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type services struct {
	auth       *auth.Service
	audit      *audit.Service
	listings   *listing.Service
	quotations *quotation.Service
}

func newServices(cfg *config.Config, st *database.Stores) services {
	stats := cache.NewStats(st.Redis, cfg.StatsCacheTTL)
	auditSvc := audit.NewService(st.AuditLogs)
	return services{
		auth:       auth.NewService(st.Users, cfg.JWTSecret, cfg.JWTTTL),
		audit:      auditSvc,
		listings:   listing.NewService(st.Listings, st.Sequence, auditSvc, listing.WithStatsCache(stats)),
		quotations: quotation.NewService(st.Quotations, st.Sequence, auditSvc, quotation.WithStatsCache(stats)),
	}
}

// New builds the HTTP application over the given stores.
func New(cfg *config.Config, st *database.Stores) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "krishi-backend",
		ErrorHandler: api.ErrorHandler(cfg.IsDevelopment()),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.IsDevelopment()}))
	app.Use(requestid.New())
	app.Use(logger.RequestLogger())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))

	if cfg.RequestTimeout > 0 {
		app.Use(timeout(cfg.RequestTimeout))
	}

	registerRoutes(app, cfg, st, newServices(cfg, st))
	return app
}

// timeout bounds the context handed to services. Handlers see the deadline
// through c.UserContext().
func timeout(d time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), d)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

const healthTimeout = 2 * time.Second

// healthHandler reports 503 when the storage backend does not answer.
func healthHandler(cfg *config.Config, st *database.Stores) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		body := fiber.Map{
			"status":   "ok",
			"driver":   cfg.DBDriver,
			"database": "connected",
		}
		if err := st.Ping(ctx); err != nil {
			slog.Warn("health check failed", slog.Any("error", err))
			body["status"] = "degraded"
			body["database"] = "disconnected"
			return c.Status(fiber.StatusServiceUnavailable).JSON(api.Envelope{
				Success: false,
				Message: "Storage unavailable",
				Data:    body,
			})
		}
		return api.OK(c, "Krishi API is running", body)
	}
}

func registerRoutes(app *fiber.App, cfg *config.Config, st *database.Stores, svc services) {
	r := app.Group("/api")
	requireAuth := auth.JWTMiddleware(cfg)

	r.Get("/health", healthHandler(cfg, st))

	// Auth
	r.Post("/auth/register", auth.RegisterHandler(svc.auth))
	r.Post("/auth/login", auth.LoginHandler(svc.auth))
	r.Get("/auth/me", requireAuth, auth.MeHandler(svc.auth))

	// Crop listings; static paths before /:id
	cl := r.Group("/crop-listings")
	cl.Get("/", listing.ListListingsHandler(svc.listings))
	cl.Post("/", requireAuth, listing.CreateListingHandler(svc.listings))
	cl.Get("/mine", requireAuth, listing.MyListingsHandler(svc.listings))
	cl.Get("/mine/export", requireAuth, listing.ExportMineHandler(svc.listings))
	cl.Get("/stats/dashboard", listing.StatsHandler(svc.listings))
	cl.Get("/seller/:phone", listing.SellerListingsHandler(svc.listings))
	cl.Get("/:id", listing.GetListingHandler(svc.listings))
	cl.Post("/:id/buyer-contact", auth.OptionalJWT(cfg), listing.ExpressInterestHandler(svc.listings))
	cl.Post("/:id/negotiate", requireAuth, listing.NegotiateHandler(svc.listings))
	cl.Post("/:id/sold", requireAuth, listing.MarkSoldHandler(svc.listings))
	cl.Post("/:id/cancel", requireAuth, listing.CancelListingHandler(svc.listings))
	cl.Patch("/:id/status", requireAuth, listing.UpdateStatusHandler(svc.listings))
	cl.Post("/:id/notes", requireAuth, listing.AddNoteHandler(svc.listings))
	cl.Delete("/:id", requireAuth, listing.DeleteListingHandler(svc.listings))

	// Quotations
	q := r.Group("/quotations")
	q.Get("/", quotation.ListQuotationsHandler(svc.quotations))
	q.Post("/", requireAuth, quotation.CreateQuotationHandler(svc.quotations))
	q.Get("/mine", requireAuth, quotation.MyQuotationsHandler(svc.quotations))
	q.Get("/stats/dashboard", quotation.StatsHandler(svc.quotations))
	q.Get("/customer/:phone", quotation.CustomerQuotationsHandler(svc.quotations))
	q.Get("/:id", quotation.GetQuotationHandler(svc.quotations))
	q.Post("/:id/accept", requireAuth, quotation.AcceptHandler(svc.quotations))
	q.Post("/:id/cancel", requireAuth, quotation.CancelHandler(svc.quotations))
	q.Post("/:id/complete", requireAuth, quotation.CompleteHandler(svc.quotations))
	q.Patch("/:id", requireAuth, quotation.UpdateDetailsHandler(svc.quotations))
	q.Post("/:id/notes", requireAuth, quotation.AddNoteHandler(svc.quotations))
	q.Delete("/:id", requireAuth, quotation.DeleteQuotationHandler(svc.quotations))

	r.Get("/audit-logs", requireAuth, audit.ListAuditLogsHandler(svc.audit))
}
