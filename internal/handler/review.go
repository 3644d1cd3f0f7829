package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/service"
)

type ReviewHandler struct {
	reviews    *service.ReviewService
	// invalidate drops cached catalog reads once a rating changes; may be nil.
	invalidate func(ctx context.Context) error
	logger     *zap.Logger
}

func NewReviewHandler(reviews *service.ReviewService, invalidate func(ctx context.Context) error, logger *zap.Logger) *ReviewHandler {
	if reviews == nil {
		panic("nil service passed to NewReviewHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewHandler{reviews: reviews, invalidate: invalidate, logger: logger.Named("reviews")}
}

type submitReviewReq struct {
	RestaurantID uint64 `json:"restaurant_id" validate:"required"`
	Rating       int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment      string `json:"comment" validate:"max=2000"`
}

// Submit creates or replaces the caller's review of a restaurant. 201 for a
// new review, 200 for an update.
func (h *ReviewHandler) Submit(c echo.Context) error {
	var req submitReviewReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	uid := userRef(c)
	if uid == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.reviews.Submit(c.Request().Context(), req.RestaurantID, *uid, req.Rating, req.Comment)
	if err != nil {
		return fail(c, h.logger, err)
	}
	// the restaurant rating changed; cached searches and details are stale
	purgeCache(c, h.invalidate, h.logger)

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, res)
}
