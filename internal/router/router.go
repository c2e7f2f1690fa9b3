// Package router defines how HTTP routes are registered for the API.
package router

import (
    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/handler"
    "github.com/tavolo/restaurant-seat-allocation/internal/middleware"
)

// RegisterRoutes registers routes that need neither authentication
// nor the /v1 rate limit.  Currently that is only the health check,
// used by load balancers to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated floor-plan and
// occupancy endpoints.  layoutCache, when non-nil, is applied to the
// layout routes only: the floor plan changes rarely, while occupancy
// must always reflect the latest allocation writes and is never
// cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, layoutCache echo.MiddlewareFunc) {
    if layoutCache != nil {
        e.GET("/v1/layouts/active", p.GetActiveLayout, layoutCache)
        e.GET("/v1/layouts/active/seats", p.GetActiveSeats, layoutCache)
    } else {
        e.GET("/v1/layouts/active", p.GetActiveLayout)
        e.GET("/v1/layouts/active/seats", p.GetActiveSeats)
    }
    e.GET("/v1/occupancy", p.GetOccupancy)
}

// RegisterStaff registers STAFF-scoped endpoints under /v1.
// All routes require a valid JWT with the STAFF or ADMIN role.
func RegisterStaff(e *echo.Echo, s *handler.StaffHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN", "STAFF"),
    )

    // ---- Reservations ----
    g.POST("/reservations", s.CreateReservation)
    g.GET("/reservations", s.ListReservations)
    g.GET("/reservations/:ref", s.GetReservation)
    g.POST("/reservations/:ref/assign", s.AssignReservation)

    // ---- Waitlist ----
    g.POST("/waitlist", s.CheckInWaitlist)
    g.GET("/waitlist", s.ListWaitlist)
    g.POST("/waitlist/:ref/seat", s.SeatWaitlist)
    g.DELETE("/waitlist/:ref", s.RemoveWaitlist)

    // ---- Allocation lifecycle ----
    g.POST("/allocations/reserve", s.Reserve)
    g.POST("/allocations/multi-create", s.MultiCreate)
    g.POST("/allocations/arrive", s.Arrive)
    g.POST("/allocations/seat", s.Seat)
    g.POST("/allocations/occupy", s.Seat) // alias kept for older clients
    g.POST("/allocations/finish", s.Finish)
    g.POST("/allocations/no-show", s.NoShow)
    g.POST("/allocations/cancel", s.Cancel)
}

// RegisterAdmin registers ADMIN-only endpoints under /v1: layout
// management and exports.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, r *handler.ReportHandler, jwtSecret string) {
    g := e.Group(
        "/v1",
        middleware.JWTAuth(jwtSecret),
        middleware.RequireRole("ADMIN"),
    )

    g.POST("/layouts", a.CreateLayout)
    g.GET("/layouts", a.ListLayouts)
    g.POST("/layouts/:id/activate", a.ActivateLayout)

    g.GET("/reports/occupancy.xlsx", r.OccupancyExport)
}
