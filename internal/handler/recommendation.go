package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// DefaultRecommendationLimit caps a recommendation list when the caller
// does not pass one.
const DefaultRecommendationLimit = 10

type RecommendationHandler struct {
	recommender *service.RecommendationService
	logger      *zap.Logger
}

func NewRecommendationHandler(r *service.RecommendationService, logger *zap.Logger) *RecommendationHandler {
	if r == nil {
		panic("nil service passed to NewRecommendationHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationHandler{recommender: r, logger: logger.Named("recommendations")}
}

// List takes the search filters and, for a signed-in caller, puts the
// cuisines they booked before first.
func (h *RecommendationHandler) List(c echo.Context) error {
	f, err := filtersFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if f.Limit == 0 {
		f.Limit = DefaultRecommendationLimit
	}
	list := h.recommender.Recommend(c.Request().Context(), f, userRef(c))
	return c.JSON(http.StatusOK, echo.Map{"results": list})
}
