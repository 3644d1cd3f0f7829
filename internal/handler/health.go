package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports whether the service and its dependencies respond.
// Only the database is required; Redis and the model are reported but do
// not fail the check.
type HealthHandler struct {
	db      *sql.DB
	rdb     *redis.Client
	breaker func() string
}

// NewHealthHandler builds the check. rdb and breaker may be nil when Redis
// or the assistant are not configured.
func NewHealthHandler(db *sql.DB, rdb *redis.Client, breaker func() string) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb, breaker: breaker}
}

func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := echo.Map{"status": "ok", "database": "ok", "redis": "disabled", "assistant": "disabled"}

	if h.db == nil || h.db.PingContext(ctx) != nil {
		status = http.StatusServiceUnavailable
		out["status"] = "degraded"
		out["database"] = "down"
	}
	if h.rdb != nil {
		out["redis"] = "ok"
		if h.rdb.Ping(ctx).Err() != nil {
			out["redis"] = "down"
		}
	}
	if h.breaker != nil {
		// gobreaker state: closed, half-open or open
		out["assistant"] = h.breaker()
	}
	return c.JSON(status, out)
}
