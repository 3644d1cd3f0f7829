package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// AdminHandler serves catalog maintenance and the admin side of the
// reservation lifecycle. Every route sits behind RequireRole(ADMIN).
type AdminHandler struct {
	catalog      *service.CatalogService
	reservations *service.ReservationService
	// invalidate drops cached catalog reads after a write; may be nil.
	invalidate   func(ctx context.Context) error
	logger       *zap.Logger
}

func NewAdminHandler(catalog *service.CatalogService, reservations *service.ReservationService, invalidate func(ctx context.Context) error, logger *zap.Logger) *AdminHandler {
	if catalog == nil || reservations == nil {
		panic("nil service passed to NewAdminHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{catalog: catalog, reservations: reservations, invalidate: invalidate, logger: logger.Named("admin")}
}

// restaurantReq is the writable part of a restaurant. Rating is not
// accepted: it only ever comes from reviews.
type restaurantReq struct {
	Name              string               `json:"name" validate:"required,max=200"`
	Address           string               `json:"address" validate:"required,max=500"`
	CuisineType       string               `json:"cuisine_type" validate:"required,max=100"`
	PriceRange        string               `json:"price_range" validate:"omitempty,oneof=$ $$ $$$ $$$$"`
	Latitude          *float64             `json:"latitude" validate:"omitempty,latitude"`
	Longitude         *float64             `json:"longitude" validate:"omitempty,longitude"`
	Capacity          int                  `json:"capacity" validate:"gte=0"`
	OperatingHours    model.OperatingHours `json:"operating_hours"`
	DietaryOptions    []string             `json:"dietary_options"`
	Atmosphere        string               `json:"atmosphere" validate:"omitempty,oneof=romantic casual formal family trendy business"`
	NoiseLevel        string               `json:"noise_level" validate:"omitempty,oneof=quiet moderate loud"`
	AverageDiningTime int                  `json:"average_dining_time" validate:"gte=0"`
}

func (r restaurantReq) toModel() *model.Restaurant {
	return &model.Restaurant{
		Name:              r.Name,
		Address:           r.Address,
		CuisineType:       r.CuisineType,
		PriceRange:        model.PriceRange(r.PriceRange),
		Latitude:          r.Latitude,
		Longitude:         r.Longitude,
		Capacity:          r.Capacity,
		OperatingHours:    r.OperatingHours,
		DietaryOptions:    model.NewDietaryTags(r.DietaryOptions...),
		Atmosphere:        model.Atmosphere(r.Atmosphere),
		NoiseLevel:        model.NoiseLevel(r.NoiseLevel),
		AverageDiningTime: r.AverageDiningTime,
	}
}

func (h *AdminHandler) purge(c echo.Context) { purgeCache(c, h.invalidate, h.logger) }

func (h *AdminHandler) CreateRestaurant(c echo.Context) error {
	var req restaurantReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	m := req.toModel()
	if err := h.catalog.Create(c.Request().Context(), m); err != nil {
		return fail(c, h.logger, err)
	}
	h.purge(c)
	h.logger.Info("restaurant created", zap.Uint64("restaurant_id", m.ID))
	return c.JSON(http.StatusCreated, m)
}

// UpdateRestaurant overwrites every writable field.
func (h *AdminHandler) UpdateRestaurant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	var req restaurantReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	m := req.toModel()
	m.ID = id
	if m.Capacity == 0 {
		m.Capacity = model.DefaultCapacity
	}
	if err := h.catalog.Update(c.Request().Context(), m); err != nil {
		return fail(c, h.logger, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, m)
}

// DeleteRestaurant removes a restaurant with its reservations and reviews.
func (h *AdminHandler) DeleteRestaurant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	if err := h.catalog.Delete(c.Request().Context(), id); err != nil {
		return fail(c, h.logger, err)
	}
	h.purge(c)
	h.logger.Info("restaurant deleted", zap.Uint64("restaurant_id", id))
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) ConfirmReservation(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, id uint64) (*model.Reservation, error) {
		return h.reservations.Confirm(ctx, id)
	})
}

func (h *AdminHandler) CancelReservation(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, id uint64) (*model.Reservation, error) {
		return h.reservations.Cancel(ctx, id, 0, true)
	})
}

func (h *AdminHandler) CompleteReservation(c echo.Context) error {
	return h.transition(c, func(ctx context.Context, id uint64) (*model.Reservation, error) {
		return h.reservations.Complete(ctx, id)
	})
}

// transition applies op to the reservation in the path. Transitions the
// lifecycle does not allow come back as 409.
func (h *AdminHandler) transition(c echo.Context, op func(context.Context, uint64) (*model.Reservation, error)) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	m, err := op(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, m)
}
