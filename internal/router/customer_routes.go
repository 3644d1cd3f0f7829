package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/handler"
)

// RegisterDiner registers the booking and review endpoints. Availability
// is public; everything else needs a valid access token of any role.
func RegisterDiner(e *echo.Echo, r *handler.ReservationHandler, rv *handler.ReviewHandler, g Guards) {
	e.GET("/v1/reservations/check-availability", r.CheckAvailability, orPass(g.RateLimit))

	grp := e.Group("/v1", g.auth(), orPass(g.RateLimit))
	grp.POST("/reservations", r.Create)
	grp.GET("/my-reservations", r.Mine)
	grp.GET("/reservations/:id", r.Get)
	grp.POST("/reservations/:id/cancel", r.Cancel)
	grp.POST("/reviews", rv.Submit)
}
