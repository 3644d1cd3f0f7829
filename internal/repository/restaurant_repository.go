package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// RestaurantRepo manages persistence for restaurants and their dietary
// tags. All timestamps are written in UTC from Go rather than by the
// database so both dialects store identical values.
type RestaurantRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewRestaurantRepo returns a new RestaurantRepo bound to the given database.
func NewRestaurantRepo(db *sql.DB, dialect database.Dialect) *RestaurantRepo {
	return &RestaurantRepo{db: db, dialect: dialect}
}

// DB exposes the underlying sql.DB so services can begin transactions
// spanning multiple repositories.
func (r *RestaurantRepo) DB() *sql.DB { return r.db }

const restaurantCols = `r.id, r.name, r.address, r.cuisine_type, r.price_range, r.rating,
	r.latitude, r.longitude, r.capacity, r.operating_hours, r.atmosphere, r.noise_level,
	r.average_dining_time, r.created_at, r.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRestaurant(s rowScanner) (model.Restaurant, error) {
	var (
		m        model.Restaurant
		lat, lng sql.NullFloat64
	)
	err := s.Scan(&m.ID, &m.Name, &m.Address, &m.CuisineType, &m.PriceRange, &m.Rating,
		&lat, &lng, &m.Capacity, &m.OperatingHours, &m.Atmosphere, &m.NoiseLevel,
		&m.AverageDiningTime, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return m, err
	}
	if lat.Valid {
		m.Latitude = &lat.Float64
	}
	if lng.Valid {
		m.Longitude = &lng.Float64
	}
	m.DietaryOptions = model.DietaryTags{}
	return m, nil
}

// Create inserts a restaurant together with its tags in one transaction.
func (r *RestaurantRepo) Create(ctx context.Context, m *model.Restaurant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := r.CreateTx(ctx, tx, m); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// CreateTx inserts a restaurant inside the caller's transaction and fills
// in the generated ID and timestamps. Rating always starts at zero.
func (r *RestaurantRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.Restaurant) error {
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRestaurant, err)
	}
	now := time.Now().UTC().Truncate(time.Second)
	const q = `INSERT INTO restaurants
		(name, address, cuisine_type, price_range, rating, latitude, longitude, capacity,
		 operating_hours, atmosphere, noise_level, average_dining_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.Name, m.Address, m.CuisineType, m.PriceRange,
		m.Latitude, m.Longitude, m.Capacity, m.OperatingHours, m.Atmosphere, m.NoiseLevel,
		m.AverageDiningTime, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.Rating = 0
	m.CreatedAt, m.UpdatedAt = now, now
	return replaceTags(ctx, tx, m.ID, m.DietaryOptions)
}

// ErrInvalidRestaurant wraps a field-level validation failure.
var ErrInvalidRestaurant = errors.New("invalid restaurant")

// Update overwrites every administrative field of a restaurant. Rating and
// CreatedAt are left as stored.
func (r *RestaurantRepo) Update(ctx context.Context, m *model.Restaurant) error {
	m.ApplyDefaults()
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRestaurant, err)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC().Truncate(time.Second)
	const q = `UPDATE restaurants SET name=?, address=?, cuisine_type=?, price_range=?,
		latitude=?, longitude=?, capacity=?, operating_hours=?, atmosphere=?, noise_level=?,
		average_dining_time=?, updated_at=? WHERE id=?`
	res, err := tx.ExecContext(ctx, q, m.Name, m.Address, m.CuisineType, m.PriceRange,
		m.Latitude, m.Longitude, m.Capacity, m.OperatingHours, m.Atmosphere, m.NoiseLevel,
		m.AverageDiningTime, now, m.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrRestaurantNotFound
	}
	if err := replaceTags(ctx, tx, m.ID, m.DietaryOptions); err != nil {
		return err
	}
	fresh, err := r.getByID(ctx, tx, m.ID, false)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	*m = *fresh
	return nil
}

// Delete removes a restaurant. Reviews, reservations and tags go with it
// through ON DELETE CASCADE.
func (r *RestaurantRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM restaurants WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRestaurantNotFound
	}
	return nil
}

// GetByID loads one restaurant with its tags.
func (r *RestaurantRepo) GetByID(ctx context.Context, id uint64) (*model.Restaurant, error) {
	return r.getByID(ctx, r.db, id, false)
}

// LockTx loads a restaurant and takes a row lock on it for the rest of
// the transaction. Every write that depends on a restaurant-wide aggregate
// (slot capacity, mean rating) goes through this first.
func (r *RestaurantRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Restaurant, error) {
	return r.getByID(ctx, tx, id, true)
}

func (r *RestaurantRepo) getByID(ctx context.Context, q querier, id uint64, lock bool) (*model.Restaurant, error) {
	query := "SELECT " + restaurantCols + " FROM restaurants r WHERE r.id = ?"
	if lock {
		query += r.dialect.ForUpdate()
	}
	m, err := scanRestaurant(q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, err
	}
	list := []model.Restaurant{m}
	if err := attachTags(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// UpdateRatingTx stores a recomputed mean rating.
func (r *RestaurantRepo) UpdateRatingTx(ctx context.Context, tx *sql.Tx, id uint64, rating float64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE restaurants SET rating = ?, updated_at = ? WHERE id = ?",
		rating, time.Now().UTC().Truncate(time.Second), id)
	return err
}

func replaceTags(ctx context.Context, tx *sql.Tx, id uint64, tags model.DietaryTags) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM restaurant_dietary_tags WHERE restaurant_id = ?", id); err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	query := "INSERT INTO restaurant_dietary_tags (restaurant_id, tag) VALUES "
	args := make([]any, 0, len(tags)*2)
	for i, t := range tags {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, id, t)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// attachTags loads the dietary tags for every restaurant in list with a
// single query.
func attachTags(ctx context.Context, q querier, list []model.Restaurant) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(list))
	args := make([]any, 0, len(list))
	for i := range list {
		index[list[i].ID] = i
		args = append(args, list[i].ID)
	}
	rows, err := q.QueryContext(ctx,
		"SELECT restaurant_id, tag FROM restaurant_dietary_tags WHERE restaurant_id IN ("+
			placeholders(len(args))+") ORDER BY restaurant_id, tag", args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  uint64
			tag string
		)
		if err := rows.Scan(&id, &tag); err != nil {
			return err
		}
		if i, ok := index[id]; ok {
			list[i].DietaryOptions = append(list[i].DietaryOptions, tag)
		}
	}
	return rows.Err()
}
