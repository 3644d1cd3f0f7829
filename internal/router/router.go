package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/middleware"
)

// Guards are the route-level middlewares shared by the Register functions.
// Cache and the limiters may be pass-through when Redis is absent.
type Guards struct {
	JWTSecret        string
	Cache            echo.MiddlewareFunc
	RateLimit        echo.MiddlewareFunc
	AssistantLimiter echo.MiddlewareFunc
}

func (g Guards) auth() echo.MiddlewareFunc     { return middleware.JWTAuth(g.JWTSecret) }
func (g Guards) optional() echo.MiddlewareFunc { return middleware.OptionalJWT(g.JWTSecret) }

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Check)
}

// RegisterAuth registers account endpoints. Logout accepts either a
// refresh token in the body or a bearer token, so it runs with OptionalJWT.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	grp := e.Group("/v1/auth", orPass(g.RateLimit))
	grp.POST("/register", a.Register)
	grp.POST("/login", a.Login)
	grp.POST("/refresh", a.Refresh)
	grp.POST("/logout", a.Logout, g.optional())

	e.GET("/v1/me", a.Me, g.auth())
}

// RegisterCatalog registers the public restaurant reads. Search and detail
// are served through the response cache.
func RegisterCatalog(e *echo.Echo, r *handler.RestaurantHandler, rec *handler.RecommendationHandler, g Guards) {
	grp := e.Group("/v1", orPass(g.RateLimit))
	grp.GET("/restaurants/search", r.Search, orPass(g.Cache))
	grp.GET("/restaurants/:id", r.Get, orPass(g.Cache))
	grp.GET("/restaurants/:id/reviews", r.Reviews)
	grp.GET("/recommendations", rec.List, g.optional())
}

// RegisterAssistant registers the chat endpoint. It has its own, smaller
// rate limit bucket.
func RegisterAssistant(e *echo.Echo, a *handler.AssistantHandler, g Guards) {
	e.POST("/v1/assistant/chat", a.Chat, g.optional(), orPass(g.AssistantLimiter))
}
