package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
	"github.com/iliyamo/restaurant-reservation/internal/validation"
)

// Validator plugs the shared validator into echo so handlers can call
// c.Validate on request DTOs.
type Validator struct{}

func (Validator) Validate(i any) error { return validation.Struct(i) }

// bindValid binds the request body into dst and validates it. On failure
// it has already written the 400 response and returns false.
func bindValid(c echo.Context, dst any) (bool, error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return true, nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func isAdmin(c echo.Context) bool { return middleware.Role(c) == model.RoleAdmin }

// userRef returns the caller id as a pointer, nil when anonymous.
func userRef(c echo.Context) *uint64 {
	if id, ok := middleware.UserID(c); ok {
		return &id
	}
	return nil
}

// fail maps a domain error onto a status and a message safe to show. Store
// failures are logged and reported without detail.
func fail(c echo.Context, logger *zap.Logger, err error) error {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Error()})
	case errors.Is(err, service.ErrInvalidDateTime),
		errors.Is(err, service.ErrInvalidPartySize),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, repository.ErrInvalidRestaurant):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, repository.ErrRestaurantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
	case errors.Is(err, repository.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "invalid status transition"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	}
	logger.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

// purgeCache runs invalidate after a write that changes catalog reads. A
// failure is logged only; the write already succeeded.
func purgeCache(c echo.Context, invalidate func(ctx context.Context) error, logger *zap.Logger) {
	if invalidate == nil {
		return
	}
	if err := invalidate(c.Request().Context()); err != nil {
		logger.Warn("cache purge failed", zap.Error(err))
	}
}
