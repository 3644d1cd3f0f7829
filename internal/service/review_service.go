package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

var ErrInvalidRating = fmt.Errorf("rating must be between %d and %d", model.MinRating, model.MaxRating)

// ReviewResult reports a submitted review and the restaurant's new mean.
type ReviewResult struct {
	Review  *model.Review `json:"review"`
	Rating  float64       `json:"restaurant_rating"`
	Count   int           `json:"review_count"`
	Created bool          `json:"created"`
	Message string        `json:"message"`
}

// ReviewService writes reviews and keeps Restaurant.Rating equal to the
// rounded mean of them.
type ReviewService struct {
	restaurants *repository.RestaurantRepo
	reviews     *repository.ReviewRepo
	logger      *zap.Logger
}

func NewReviewService(restaurants *repository.RestaurantRepo, reviews *repository.ReviewRepo, logger *zap.Logger) *ReviewService {
	if restaurants == nil || reviews == nil {
		panic("nil repo passed to NewReviewService")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{restaurants: restaurants, reviews: reviews, logger: logger.Named("reviews")}
}

// Submit creates the user's review of a restaurant or overwrites the one
// they already have, then recomputes the restaurant's rating. Everything
// runs in one transaction under the restaurant row lock, so concurrent
// submitters for the same restaurant see each other's rows.
func (s *ReviewService) Submit(ctx context.Context, restaurantID, userID uint64, rating int, comment string) (*ReviewResult, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)

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

	if _, err := s.restaurants.LockTx(ctx, tx, restaurantID); err != nil {
		return nil, err
	}

	res := &ReviewResult{}
	existing, err := s.reviews.GetByRestaurantAndUserTx(ctx, tx, restaurantID, userID)
	switch {
	case err == nil:
		existing.Rating, existing.Comment = rating, comment
		if err := s.reviews.UpdateTx(ctx, tx, existing); err != nil {
			return nil, fmt.Errorf("update review: %w", err)
		}
		res.Review = existing
		res.Message = "Review updated successfully"
	case errors.Is(err, repository.ErrReviewNotFound):
		m := &model.Review{RestaurantID: restaurantID, UserID: userID, Rating: rating, Comment: comment}
		if err := s.reviews.CreateTx(ctx, tx, m); err != nil {
			return nil, fmt.Errorf("create review: %w", err)
		}
		res.Review = m
		res.Created = true
		res.Message = "Review submitted successfully"
	default:
		return nil, err
	}

	avg, n, err := s.reviews.AverageRatingTx(ctx, tx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	if err := s.restaurants.UpdateRatingTx(ctx, tx, restaurantID, avg); err != nil {
		return nil, fmt.Errorf("update rating: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	res.Rating, res.Count = avg, n
	s.logger.Info("review saved",
		zap.Uint64("restaurant_id", restaurantID),
		zap.Uint64("user_id", userID),
		zap.Bool("created", res.Created),
		zap.Float64("rating", avg))
	return res, nil
}

// ListByRestaurant returns the restaurant's reviews, newest first.
func (s *ReviewService) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Review, error) {
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.reviews.ListByRestaurant(ctx, restaurantID)
}
