package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

func TestRecommend_BoostsPastCuisines(t *testing.T) {
	f := newFixture(t)
	roma := f.restaurant(t, model.Restaurant{Name: "Roma", CuisineType: "Italian", PriceRange: model.PriceModerate})
	kyoto := f.restaurant(t, model.Restaurant{Name: "Kyoto", CuisineType: "Japanese", PriceRange: model.PriceModerate})
	napoli := f.restaurant(t, model.Restaurant{Name: "Napoli", CuisineType: "Southern Italian", PriceRange: model.PriceLuxury})
	taco := f.restaurant(t, model.Restaurant{Name: "Taco Town", CuisineType: "Mexican", PriceRange: model.PriceModerate})
	f.rate(t, roma.ID, 3.0)
	f.rate(t, kyoto.ID, 4.9)
	f.rate(t, napoli.ID, 4.0)
	f.rate(t, taco.ID, 4.5)

	rsvp := f.reservationService(nil)
	require.True(t, book(t, rsvp, roma.ID, 7, "2025-05-01", "19:00", 2).Success)

	svc := NewRecommendationService(f.catalog(), f.reservations, nil)
	ctx := context.Background()
	user := uint64(7)

	got := svc.Recommend(ctx, Filters{}, &user)
	assert.Equal(t, []uint64{napoli.ID, roma.ID, kyoto.ID, taco.ID}, restaurantIDs(got))

	// The boosted set comes from the whole catalog, the remainder from the
	// filtered base.
	got = svc.Recommend(ctx, Filters{PriceRange: "$$"}, &user)
	assert.Equal(t, []uint64{napoli.ID, roma.ID, kyoto.ID, taco.ID}, restaurantIDs(got))

	seen := map[uint64]bool{}
	italianDone := false
	for _, r := range got {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
		isItalian := strings.Contains(strings.ToLower(r.CuisineType), "italian")
		if !isItalian {
			italianDone = true
		}
		assert.False(t, italianDone && isItalian, "italian match after a non-italian one")
	}
}

func TestRecommend_WithoutHistoryReturnsBase(t *testing.T) {
	f := newFixture(t)
	a := f.restaurant(t, model.Restaurant{Name: "A", CuisineType: "Italian"})
	b := f.restaurant(t, model.Restaurant{Name: "B", CuisineType: "Thai"})
	f.rate(t, b.ID, 5)

	svc := NewRecommendationService(f.catalog(), f.reservations, nil)
	ctx := context.Background()
	want := []uint64{b.ID, a.ID}

	assert.Equal(t, want, restaurantIDs(svc.Recommend(ctx, Filters{}, nil)))
	stranger := uint64(42)
	assert.Equal(t, want, restaurantIDs(svc.Recommend(ctx, Filters{}, &stranger)))
}

func TestMerge_DedupesAndLimits(t *testing.T) {
	r := func(id uint64) model.Restaurant { return model.Restaurant{ID: id} }
	got := merge([]model.Restaurant{r(3), r(1)}, []model.Restaurant{r(1), r(2), r(3), r(4)}, 3)
	assert.Equal(t, []uint64{3, 1, 2}, restaurantIDs(got))
}
