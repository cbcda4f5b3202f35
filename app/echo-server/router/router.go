package router

import (
	"customerSegments/internal/middleware"
	"customerSegments/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupSegmentRoutes(api *echo.Group, handler *rest.SegmentHandler, authRequired echo.MiddlewareFunc) {
	tenant := middleware.Tenant()

	api.GET("/segments", handler.ListSegments, authRequired, tenant)

	customers := api.Group("/customers", authRequired, tenant)
	customers.GET("/:id/profile", handler.GetProfile)
	customers.POST("/:id/score", handler.ScoreCustomer)
}

func SetupTicketRoutes(api *echo.Group, handler *rest.TicketHandler, authRequired echo.MiddlewareFunc) {
	tenant := middleware.Tenant()

	api.POST("/customers/:id/tickets", handler.OpenTicket, authRequired, tenant)
	api.GET("/tickets", handler.ListTickets, authRequired, tenant)
}

func SetupAdminRoutes(api *echo.Group, handler *rest.DiscoveryAdminHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	admin := api.Group("/admin", authRequired, adminOnly, middleware.Tenant())

	admin.POST("/discovery", handler.Trigger)
	admin.GET("/discovery", handler.LastRun)
}
