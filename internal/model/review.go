package model

import "time"

// Rating bounds accepted on the review write path.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is a user's rating of a restaurant. There is at most one review
// per (restaurant, user); resubmitting updates it in place and leaves
// CreatedAt untouched.
type Review struct {
	ID           uint64    `json:"id"`
	RestaurantID uint64    `json:"restaurant_id"`
	UserID       uint64    `json:"user_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
