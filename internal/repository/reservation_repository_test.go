package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/testutil"
)

func createReservation(t *testing.T, repo *ReservationRepo, m *model.Reservation) {
	t.Helper()
	ctx := context.Background()
	tx, err := repo.DB().BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, repo.CreateTx(ctx, tx, m))
	require.NoError(t, tx.Commit())
}

func TestReservationRepo_CreateThenGet(t *testing.T) {
	rests := newRestaurantRepo(t)
	repo := NewReservationRepo(rests.DB())
	rest := seed(t, rests, model.Restaurant{Name: "A", Address: "x", Capacity: 10})
	uid := testutil.InsertUser(t, repo.DB(), "diner@example.com", model.RoleDiner)

	slot := time.Date(2025, 6, 1, 19, 30, 42, 0, time.UTC)
	in := model.Reservation{RestaurantID: rest.ID, UserID: uid, PartySize: 4, ReservedAt: slot,
		Status: model.StatusPending, SpecialRequests: "window seat"}
	createReservation(t, repo, &in)

	got, err := repo.GetByID(context.Background(), in.ID)
	require.NoError(t, err)
	assert.Equal(t, rest.ID, got.RestaurantID)
	assert.Equal(t, 4, got.PartySize)
	assert.True(t, got.ReservedAt.Equal(time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)), "slot truncated to the minute")
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, "window seat", got.SpecialRequests)

	_, err = repo.GetByID(context.Background(), 12345)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReservationRepo_BookedPartySizeCountsActiveOnly(t *testing.T) {
	rests := newRestaurantRepo(t)
	repo := NewReservationRepo(rests.DB())
	rest := seed(t, rests, model.Restaurant{Name: "A", Address: "x", Capacity: 10})
	slot := time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)

	for _, r := range []struct {
		size   int
		status model.ReservationStatus
		at     time.Time
	}{
		{2, model.StatusPending, slot},
		{3, model.StatusConfirmed, slot},
		{4, model.StatusCancelled, slot},
		{5, model.StatusCompleted, slot},
		{6, model.StatusConfirmed, slot.Add(time.Minute)},
	} {
		createReservation(t, repo, &model.Reservation{RestaurantID: rest.ID, UserID: 1,
			PartySize: r.size, ReservedAt: r.at, Status: r.status})
	}

	booked, err := repo.BookedPartySize(context.Background(), rest.ID, slot)
	require.NoError(t, err)
	assert.Equal(t, 5, booked)

	n, err := repo.CountInSlot(context.Background(), rest.ID, slot)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestReservationRepo_TransitionStatus(t *testing.T) {
	rests := newRestaurantRepo(t)
	repo := NewReservationRepo(rests.DB())
	rest := seed(t, rests, model.Restaurant{Name: "A", Address: "x", Capacity: 10})
	ctx := context.Background()

	m := model.Reservation{RestaurantID: rest.ID, UserID: 1, PartySize: 2,
		ReservedAt: time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC), Status: model.StatusPending}
	createReservation(t, repo, &m)

	_, err := repo.TransitionStatus(ctx, m.ID, model.StatusCompleted)
	assert.ErrorIs(t, err, ErrConflict, "pending cannot complete")

	got, err := repo.TransitionStatus(ctx, m.ID, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	got, err = repo.TransitionStatus(ctx, m.ID, model.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, got.Status)

	_, err = repo.TransitionStatus(ctx, m.ID, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = repo.TransitionStatus(ctx, 999, model.StatusConfirmed)
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestReservationRepo_ListAndCuisines(t *testing.T) {
	rests := newRestaurantRepo(t)
	repo := NewReservationRepo(rests.DB())
	ctx := context.Background()
	it := seed(t, rests, model.Restaurant{Name: "Roma", Address: "x", CuisineType: "Italian"})
	jp := seed(t, rests, model.Restaurant{Name: "Kyoto", Address: "y", CuisineType: "Japanese"})
	base := time.Date(2025, 6, 1, 19, 0, 0, 0, time.UTC)

	createReservation(t, repo, &model.Reservation{RestaurantID: it.ID, UserID: 7, PartySize: 2, ReservedAt: base, Status: model.StatusPending})
	createReservation(t, repo, &model.Reservation{RestaurantID: it.ID, UserID: 7, PartySize: 2, ReservedAt: base.Add(24 * time.Hour), Status: model.StatusCancelled})
	createReservation(t, repo, &model.Reservation{RestaurantID: jp.ID, UserID: 8, PartySize: 2, ReservedAt: base, Status: model.StatusPending})

	list, err := repo.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Roma", list[0].RestaurantName)
	assert.True(t, list[0].ReservedAt.After(list[1].ReservedAt))

	cuisines, err := repo.CuisinesForUser(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"Italian"}, cuisines)

	none, err := repo.CuisinesForUser(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
