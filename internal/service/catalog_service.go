// Package service holds the restaurant domain operations: catalog search,
// availability and booking, recommendations and reviews. Handlers and the
// assistant both call into it; it talks to the store through the
// repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// Filters is the caller-facing shape of a catalog search. Zero values do
// not constrain the result.
type Filters struct {
	CuisineType         string
	Location            string
	PriceRange          string
	DietaryRestrictions []string
	RatingMin           *float64
	Atmosphere          string
	CuisineAny          []string
	OrderBy             string
	Limit               int
}

var errInvalidFilter = errors.New("invalid filter")

// query validates f and converts it into repository predicates.
func (f Filters) query() (repository.RestaurantSearchQuery, error) {
	q := repository.RestaurantSearchQuery{
		CuisineType: strings.TrimSpace(f.CuisineType),
		Location:    strings.TrimSpace(f.Location),
		Atmosphere:  strings.TrimSpace(f.Atmosphere),
		Dietary:     f.DietaryRestrictions,
		CuisineAny:  f.CuisineAny,
		OrderBy:     f.OrderBy,
		Limit:       f.Limit,
	}
	if p := strings.TrimSpace(f.PriceRange); p != "" {
		q.PriceRange = model.PriceRange(p)
		if !q.PriceRange.Valid() {
			return q, fmt.Errorf("%w: price range %q", errInvalidFilter, p)
		}
	}
	if f.RatingMin != nil {
		r := *f.RatingMin
		if math.IsNaN(r) || r < 0 || r > model.MaxRating {
			return q, fmt.Errorf("%w: rating_min %v", errInvalidFilter, r)
		}
		q.RatingMin = &r
	}
	if f.Limit < 0 {
		return q, fmt.Errorf("%w: limit %d", errInvalidFilter, f.Limit)
	}
	if _, err := repository.OrderClause(f.OrderBy); err != nil {
		return q, fmt.Errorf("%w: order_by %q", errInvalidFilter, f.OrderBy)
	}
	return q, nil
}

// CatalogService serves restaurant search and the administrative catalog
// operations.
type CatalogService struct {
	restaurants *repository.RestaurantRepo
	maxAttempts uint64
	retryWait   time.Duration
	logger      *zap.Logger
}

// NewCatalogService returns a catalog service. maxAttempts bounds how often
// a failing search is tried; values below 1 mean 3.
func NewCatalogService(restaurants *repository.RestaurantRepo, maxAttempts int, logger *zap.Logger) *CatalogService {
	if restaurants == nil {
		panic("nil restaurant repo")
	}
	if maxAttempts < 1 {
		maxAttempts = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		restaurants: restaurants,
		maxAttempts: uint64(maxAttempts),
		retryWait:   100 * time.Millisecond,
		logger:      logger.Named("catalog"),
	}
}

// Search returns the restaurants matching every filter, ordered by
// f.OrderBy (rating, highest first, by default). It never fails: a
// malformed filter or a store fault yields an empty slice.
func (s *CatalogService) Search(ctx context.Context, f Filters) []model.Restaurant {
	q, err := f.query()
	if err != nil {
		s.logger.Info("rejected search filter", zap.Error(err))
		return []model.Restaurant{}
	}

	var out []model.Restaurant
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			metrics.SearchRetries.Inc()
		}
		res, err := s.restaurants.Search(ctx, q)
		if err != nil {
			if errors.Is(err, repository.ErrInvalidOrder) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryWait
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.maxAttempts-1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		s.logger.Error("search failed", zap.Int("attempts", attempt), zap.Error(err))
		return []model.Restaurant{}
	}
	return out
}

// Get returns one restaurant.
func (s *CatalogService) Get(ctx context.Context, id uint64) (*model.Restaurant, error) {
	return s.restaurants.GetByID(ctx, id)
}

// Create adds a restaurant. Zero capacity on a new record means the default.
func (s *CatalogService) Create(ctx context.Context, m *model.Restaurant) error {
	if m.Capacity == 0 {
		m.Capacity = model.DefaultCapacity
	}
	return s.restaurants.Create(ctx, m)
}

// Update overwrites the administrative fields of a restaurant.
func (s *CatalogService) Update(ctx context.Context, m *model.Restaurant) error {
	return s.restaurants.Update(ctx, m)
}

// Delete removes a restaurant and everything that references it.
func (s *CatalogService) Delete(ctx context.Context, id uint64) error {
	return s.restaurants.Delete(ctx, id)
}

// Persist stores a batch of restaurants in one transaction. Records that
// fail validation are skipped; the stored ones are returned with their ids.
func (s *CatalogService) Persist(ctx context.Context, list []model.Restaurant) ([]model.Restaurant, error) {
	tx, err := s.restaurants.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stored := make([]model.Restaurant, 0, len(list))
	for i := range list {
		m := list[i]
		if m.Capacity == 0 {
			m.Capacity = model.DefaultCapacity
		}
		if err := s.restaurants.CreateTx(ctx, tx, &m); err != nil {
			if errors.Is(err, repository.ErrInvalidRestaurant) {
				s.logger.Warn("skipping invalid restaurant", zap.String("name", m.Name), zap.Error(err))
				continue
			}
			return nil, err
		}
		stored = append(stored, m)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return stored, nil
}
