package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/property-reservation/internal/handler"
)

// RegisterRoutes registers routes that sit outside the API group.  At the
// moment it only exposes a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI mounts the booking and block endpoints under /api.  The
// given middlewares (rate limiting, response cache) apply to the whole
// group, in order.
func RegisterAPI(e *echo.Echo, bookings *handler.BookingHandler, blocks *handler.BlockHandler, mws ...echo.MiddlewareFunc) {
	api := e.Group("/api", mws...)

	b := api.Group("/bookings")
	b.POST("", bookings.Create)
	b.GET("", bookings.List)
	b.GET("/:id", bookings.Get)
	b.PUT("/:id", bookings.Update)
	b.DELETE("/:id", bookings.Delete)
	// state transitions
	b.PATCH("/:id/cancel", bookings.Cancel)
	b.PATCH("/:id/rebook", bookings.Rebook)

	bl := api.Group("/blocks")
	bl.POST("", blocks.Create)
	bl.GET("", blocks.List)
	bl.GET("/:id", blocks.Get)
	bl.PUT("/:id", blocks.Update)
	bl.DELETE("/:id", blocks.Delete)
}
