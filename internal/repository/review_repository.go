package repository

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReviewRepo persists reviews. Writes that change the aggregate rating are
// expected to run inside a transaction that holds the restaurant row lock.
type ReviewRepo struct {
	db *sql.DB
}

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewCols = "id, restaurant_id, user_id, rating, comment, created_at, updated_at"

// GetByRestaurantAndUserTx finds the single review a user may hold for a
// restaurant.
func (r *ReviewRepo) GetByRestaurantAndUserTx(ctx context.Context, tx *sql.Tx, restaurantID, userID uint64) (*model.Review, error) {
	var m model.Review
	err := tx.QueryRowContext(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE restaurant_id = ? AND user_id = ?",
		restaurantID, userID).Scan(&m.ID, &m.RestaurantID, &m.UserID, &m.Rating, &m.Comment, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CreateTx inserts a review and fills in ID and timestamps.
func (r *ReviewRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.Review) error {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reviews (restaurant_id, user_id, rating, comment, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		m.RestaurantID, m.UserID, m.Rating, m.Comment, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// UpdateTx overwrites rating and comment in place. CreatedAt is not touched.
func (r *ReviewRepo) UpdateTx(ctx context.Context, tx *sql.Tx, m *model.Review) error {
	now := time.Now().UTC().Truncate(time.Second)
	_, err := tx.ExecContext(ctx,
		"UPDATE reviews SET rating = ?, comment = ?, updated_at = ? WHERE id = ?",
		m.Rating, m.Comment, now, m.ID)
	if err != nil {
		return err
	}
	m.UpdatedAt = now
	return nil
}

// AverageRatingTx returns the mean rating of a restaurant's reviews rounded
// to two decimals, and the number of reviews. No reviews yields 0.
func (r *ReviewRepo) AverageRatingTx(ctx context.Context, tx *sql.Tx, restaurantID uint64) (float64, int, error) {
	var (
		avg sql.NullFloat64
		n   int
	)
	err := tx.QueryRowContext(ctx,
		"SELECT AVG(rating), COUNT(*) FROM reviews WHERE restaurant_id = ?", restaurantID).Scan(&avg, &n)
	if err != nil {
		return 0, 0, err
	}
	if !avg.Valid {
		return 0, n, nil
	}
	return math.Round(avg.Float64*100) / 100, n, nil
}

// ListByRestaurant returns reviews newest first.
func (r *ReviewRepo) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reviewCols+" FROM reviews WHERE restaurant_id = ? ORDER BY created_at DESC, id DESC", restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Review, 0)
	for rows.Next() {
		var m model.Review
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.UserID, &m.Rating, &m.Comment, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
