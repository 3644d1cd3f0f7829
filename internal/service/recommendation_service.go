package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// RecommendationService re-ranks catalog search results with the cuisines a
// user has booked before.
type RecommendationService struct {
	catalog      *CatalogService
	reservations *repository.ReservationRepo
	logger       *zap.Logger
}

func NewRecommendationService(catalog *CatalogService, reservations *repository.ReservationRepo, logger *zap.Logger) *RecommendationService {
	if catalog == nil || reservations == nil {
		panic("nil dependency passed to NewRecommendationService")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationService{catalog: catalog, reservations: reservations, logger: logger.Named("recommend")}
}

// Recommend returns the filtered catalog with the user's preferred cuisines
// first. The boosted set is every restaurant whose cuisine contains one of
// the cuisines of the user's past reservations; it is ordered like the base
// and followed by the rest of the base. No id appears twice. Without a user
// or a history the base comes back unchanged.
func (s *RecommendationService) Recommend(ctx context.Context, f Filters, userID *uint64) []model.Restaurant {
	base := s.catalog.Search(ctx, f)
	if userID == nil {
		return base
	}

	preferred, err := s.reservations.CuisinesForUser(ctx, *userID)
	if err != nil {
		s.logger.Warn("preferences unavailable, returning base", zap.Uint64("user_id", *userID), zap.Error(err))
		return base
	}
	preferred = nonBlank(preferred)
	if len(preferred) == 0 {
		return base
	}

	boosted := s.catalog.Search(ctx, Filters{CuisineAny: preferred, OrderBy: f.OrderBy})
	return merge(boosted, base, f.Limit)
}

// merge concatenates first and second without repeating an id and cuts the
// result at limit when limit is positive.
func merge(first, second []model.Restaurant, limit int) []model.Restaurant {
	seen := make(map[uint64]struct{}, len(first)+len(second))
	out := make([]model.Restaurant, 0, len(first)+len(second))
	for _, list := range [][]model.Restaurant{first, second} {
		for _, r := range list {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func nonBlank(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
