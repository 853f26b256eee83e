// Package routes defines the API routing configuration.
package routes

import (
	"estatehub/internal/handlers"
	"estatehub/internal/metrics"
	"estatehub/internal/middleware"
	"estatehub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Credit       *handlers.CreditHandler
	Admin        *handlers.AdminHandler
	Property     *handlers.PropertyHandler
	Interest     *handlers.InterestHandler
	Notification *handlers.NotificationHandler
	Health       *handlers.HealthHandler
	Metrics      *metrics.Metrics
}

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, h Handlers, authMW *middleware.AuthMiddleware) {
	app.Get("/health", h.Health.Health)
	if h.Metrics != nil {
		app.Get("/metrics", h.Metrics.Handler())
	}

	api := app.Group("/api")

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.Refresh)
	authGroup.Get("/me", authMW.Handler, h.Auth.Me)

	credits := api.Group("/credits")
	credits.Get("/bundles", h.Credit.Bundles)
	credits.Post("/webhook", h.Credit.Webhook)
	credits.Post("/webhook/:gateway", h.Credit.Webhook)
	credits.Get("/callback", h.Credit.Callback)

	// Authenticated routes
	credits.Get("/balance", authMW.Handler, middleware.HasPermission(models.PermissionCreditsRead), h.Credit.Balance)
	credits.Get("/transactions", authMW.Handler, middleware.HasPermission(models.PermissionCreditsRead), h.Credit.Transactions)
	credits.Post("/purchase", authMW.Handler, middleware.HasPermission(models.PermissionCreditsWrite), h.Credit.Purchase)
	credits.Get("/verify/:reference", authMW.Handler, h.Credit.Verify)
	credits.Post("/verify/:reference", authMW.Handler, h.Credit.Verify)
	credits.Post("/verify-inline/:reference", authMW.Handler, h.Credit.VerifyInline)

	properties := api.Group("/properties", authMW.Handler)
	properties.Get("/", h.Property.List)
	properties.Get("/:id", h.Property.Get)
	properties.Post("/", middleware.HasPermission(models.PermissionPropertyWrite), h.Property.Create)

	interests := api.Group("/interests", authMW.Handler)
	interests.Get("/", middleware.HasPermission(models.PermissionInterestRead), h.Interest.List)
	interests.Get("/:interestId", middleware.HasPermission(models.PermissionInterestRead), h.Interest.Get)
	interests.Post("/", middleware.HasPermission(models.PermissionInterestWrite), h.Interest.Create)
	interests.Post("/:interestId/unlock", middleware.HasPermission(models.PermissionUnlock), h.Interest.Unlock)

	notifications := api.Group("/notifications", authMW.Handler)
	notifications.Get("/", h.Notification.List)
	notifications.Patch("/:id/read", h.Notification.MarkRead)

	admin := api.Group("/admin", authMW.Handler, middleware.RequireRole(models.RoleAdmin))
	admin.Post("/bundles", h.Admin.CreateBundle)
	admin.Patch("/bundles/:id", h.Admin.UpdateBundle)
	admin.Post("/reconcile", h.Admin.Reconcile)
}
