package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/middleware"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// ReservationHandler serves availability checks and the diner side of the
// reservation lifecycle.
type ReservationHandler struct {
	reservations *service.ReservationService
	logger       *zap.Logger
}

func NewReservationHandler(reservations *service.ReservationService, logger *zap.Logger) *ReservationHandler {
	if reservations == nil {
		panic("nil service passed to NewReservationHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationHandler{reservations: reservations, logger: logger.Named("reservations")}
}

type availabilityReq struct {
	RestaurantID uint64 `query:"restaurant_id" json:"restaurant_id" validate:"required"`
	Date         string `query:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `query:"time" json:"time" validate:"required,datetime=15:04"`
	PartySize    int    `query:"party_size" json:"party_size" validate:"required,gte=1"`
}

type createReservationReq struct {
	RestaurantID    uint64 `json:"restaurant_id" validate:"required"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	PartySize       int    `json:"party_size" validate:"required,gte=1"`
	SpecialRequests string `json:"special_requests" validate:"max=1000"`
}

// CheckAvailability answers whether a party fits into a slot. A full slot
// or a closed day is a 200 with available=false.
func (h *ReservationHandler) CheckAvailability(c echo.Context) error {
	var req availabilityReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	a, err := h.reservations.CheckAvailability(c.Request().Context(), req.RestaurantID, req.Date, req.Time, req.PartySize)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Create books a table for the caller. The reservation starts pending until
// an admin confirms it.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	uid, _ := middleware.UserID(c)
	res, err := h.reservations.Create(c.Request().Context(), service.CreateReservationInput{
		RestaurantID:    req.RestaurantID,
		UserID:          uid,
		Date:            req.Date,
		Time:            req.Time,
		PartySize:       req.PartySize,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	if !res.Success {
		return c.JSON(http.StatusOK, res)
	}
	return c.JSON(http.StatusCreated, res)
}

// Mine lists the caller's reservations, newest slot first.
func (h *ReservationHandler) Mine(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	list, err := h.reservations.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}

// Get returns one reservation. Diners only see their own.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	uid, _ := middleware.UserID(c)
	m, err := h.reservations.Get(c.Request().Context(), id, uid, isAdmin(c))
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Cancel cancels one of the caller's reservations.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	uid, _ := middleware.UserID(c)
	m, err := h.reservations.Cancel(c.Request().Context(), id, uid, false)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, m)
}
