package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-desk/internal/api/http/handlers"
	"github.com/spec-kit/repair-desk/internal/auth"
	"github.com/spec-kit/repair-desk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Engineers      *handlers.EngineersHandler
	Costs          *handlers.CostsHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
	Redis          *redis.Client
	IdempotencyTTL time.Duration
	FilesDir       string
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	if cfg.FilesDir != "" {
		app.Static("/files", cfg.FilesDir, fiber.Static{ByteRange: true})
	}

	app.Post("/tickets", Idempotency(cfg.Redis, "tickets", cfg.IdempotencyTTL, logger), cfg.Tickets.CreateTicket)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Post("/auth/logout", cfg.Auth.SignOut)
	protected.Post("/auth/password/change", cfg.Auth.ChangePassword)

	admin := auth.RequireAdmin()
	protected.Post("/staff", admin, cfg.Auth.CreateStaff)
	protected.Get("/staff", admin, cfg.Auth.ListStaff)

	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)
	protected.Post("/tickets/:id/before-video", cfg.Tickets.UploadBeforeRepairVideo)
	protected.Put("/tickets/:id/engineer", cfg.Tickets.AssignEngineer)
	protected.Put("/tickets/:id/report", cfg.Tickets.SaveReport)
	protected.Get("/tickets/:id/print", cfg.Tickets.PrintTicket)
	protected.Get("/tickets/:id/history", cfg.Tickets.History)
	protected.Post("/tickets/:id/whatsapp", cfg.Tickets.SendWhatsAppVideo)
	protected.Get("/customers/history", cfg.Tickets.CustomerHistory)

	protected.Get("/tickets/:id/costs", cfg.Costs.List)
	protected.Post("/tickets/:id/costs", cfg.Costs.Add)
	protected.Delete("/tickets/:id/costs/:costId", cfg.Costs.Delete)

	protected.Get("/engineers", cfg.Engineers.List)
	protected.Get("/engineers/:id", cfg.Engineers.Get)
	protected.Post("/engineers", cfg.Engineers.Create)
	protected.Patch("/engineers/:id", cfg.Engineers.Update)
	protected.Delete("/engineers/:id", admin, cfg.Engineers.Delete)

	protected.Get("/reports/accounts", admin, cfg.Reports.Accounts)
}
