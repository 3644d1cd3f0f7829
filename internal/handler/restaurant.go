package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// RestaurantHandler serves the public catalog: search, detail and the
// review list of one restaurant.
type RestaurantHandler struct {
	catalog *service.CatalogService
	reviews *service.ReviewService
	logger  *zap.Logger
}

func NewRestaurantHandler(catalog *service.CatalogService, reviews *service.ReviewService, logger *zap.Logger) *RestaurantHandler {
	if catalog == nil || reviews == nil {
		panic("nil service passed to NewRestaurantHandler")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestaurantHandler{catalog: catalog, reviews: reviews, logger: logger.Named("restaurants")}
}

// filtersFromQuery reads the catalog filters shared by search and
// recommendations. Dietary restrictions come either comma separated in
// "dietary" or repeated as "dietary[]".
func filtersFromQuery(c echo.Context) (service.Filters, error) {
	q := c.QueryParams()
	f := service.Filters{
		CuisineType: q.Get("cuisine"),
		Location:    q.Get("location"),
		PriceRange:  q.Get("price"),
		Atmosphere:  q.Get("atmosphere"),
		OrderBy:     q.Get("order_by"),
	}
	for _, v := range q["dietary"] {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				f.DietaryRestrictions = append(f.DietaryRestrictions, tag)
			}
		}
	}
	f.DietaryRestrictions = append(f.DietaryRestrictions, q["dietary[]"]...)

	if raw := q.Get("rating_min"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return f, errors.New("rating_min must be a number")
		}
		f.RatingMin = &r
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, errors.New("limit must be a non-negative integer")
		}
		f.Limit = n
	}
	return f, nil
}

// Search returns {"results": [...]}. Unknown filter values yield an empty
// list rather than an error.
func (h *RestaurantHandler) Search(c echo.Context) error {
	f, err := filtersFromQuery(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"results": h.catalog.Search(c.Request().Context(), f)})
}

// Get returns one restaurant.
func (h *RestaurantHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	r, err := h.catalog.Get(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Reviews lists the reviews of one restaurant, newest first.
func (h *RestaurantHandler) Reviews(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid restaurant id"})
	}
	list, err := h.reviews.ListByRestaurant(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": list})
}
