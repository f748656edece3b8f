package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/abdallahh166/TowerOps-sub002/internal/api/http/handlers"
	"github.com/abdallahh166/TowerOps-sub002/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	WorkOrders *handlers.WorkOrdersHandler
	Dashboard  *handlers.DashboardHandler
	Metrics    *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1")

	wo := api.Group("/work-orders")
	wo.Post("/", cfg.WorkOrders.Create)
	wo.Get("/:number", cfg.WorkOrders.Get)
	wo.Get("/:number/sla-status", cfg.WorkOrders.SlaStatus)
	wo.Post("/:number/assign", cfg.WorkOrders.Assign)
	wo.Post("/:number/start", cfg.WorkOrders.Start)
	wo.Post("/:number/complete", cfg.WorkOrders.Complete)
	wo.Post("/:number/submit", cfg.WorkOrders.Submit)
	wo.Post("/:number/accept", cfg.WorkOrders.Accept)
	wo.Post("/:number/reject", cfg.WorkOrders.Reject)
	wo.Post("/:number/reopen", cfg.WorkOrders.Reopen)
	wo.Post("/:number/close", cfg.WorkOrders.Close)
	wo.Post("/:number/cancel", cfg.WorkOrders.Cancel)
	wo.Post("/:number/signatures/client", cfg.WorkOrders.ClientSignature)
	wo.Post("/:number/signatures/engineer", cfg.WorkOrders.EngineerSignature)

	api.Get("/dashboard/kpis", cfg.Dashboard.KPIs)
}
