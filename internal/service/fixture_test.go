package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/testutil"
)

type fixture struct {
	db           *sql.DB
	restaurants  *repository.RestaurantRepo
	reservations *repository.ReservationRepo
	reviews      *repository.ReviewRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	return &fixture{
		db:           db,
		restaurants:  repository.NewRestaurantRepo(db, database.SQLite),
		reservations: repository.NewReservationRepo(db),
		reviews:      repository.NewReviewRepo(db),
	}
}

func (f *fixture) restaurant(t *testing.T, m model.Restaurant) model.Restaurant {
	t.Helper()
	if m.Address == "" {
		m.Address = "1 Test St"
	}
	if m.Capacity == 0 {
		m.Capacity = model.DefaultCapacity
	}
	require.NoError(t, f.restaurants.Create(context.Background(), &m))
	return m
}

func (f *fixture) rate(t *testing.T, id uint64, rating float64) {
	t.Helper()
	_, err := f.db.Exec("UPDATE restaurants SET rating = ? WHERE id = ?", rating, id)
	require.NoError(t, err)
}

func (f *fixture) catalog() *CatalogService {
	return NewCatalogService(f.restaurants, 3, nil)
}

func (f *fixture) reservationService(events EventPublisher) *ReservationService {
	return NewReservationService(f.restaurants, f.reservations, events, nil)
}

func restaurantIDs(list []model.Restaurant) []uint64 {
	out := make([]uint64, 0, len(list))
	for _, r := range list {
		out = append(out, r.ID)
	}
	return out
}
