package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// RegisterAdmin registers catalog maintenance and reservation moderation
// under /v1/admin. All routes require the ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, g Guards) {
	grp := e.Group("/v1/admin", g.auth(), middleware.RequireRole(model.RoleAdmin))

	grp.POST("/restaurants", h.CreateRestaurant)
	grp.PUT("/restaurants/:id", h.UpdateRestaurant)
	grp.DELETE("/restaurants/:id", h.DeleteRestaurant)

	grp.POST("/reservations/:id/confirm", h.ConfirmReservation)
	grp.POST("/reservations/:id/cancel", h.CancelReservation)
	grp.POST("/reservations/:id/complete", h.CompleteReservation)
}
