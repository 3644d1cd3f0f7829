package service

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

func TestCatalogSearch_Predicates(t *testing.T) {
	f := newFixture(t)
	roma := f.restaurant(t, model.Restaurant{Name: "Roma", Address: "1 Main St, Springfield", CuisineType: "Italian",
		PriceRange: model.PriceModerate, DietaryOptions: model.DietaryTags{"vegetarian", "vegan"}})
	kyoto := f.restaurant(t, model.Restaurant{Name: "Kyoto", Address: "5 Elm St, Shelbyville", CuisineType: "Japanese",
		PriceRange: model.PriceExpensive, DietaryOptions: model.DietaryTags{"vegetarian"}})
	taco := f.restaurant(t, model.Restaurant{Name: "Taco Town", Address: "7 Main St, Springfield", CuisineType: "Mexican",
		PriceRange: model.PriceBudget, Atmosphere: model.AtmosphereFamily})
	f.rate(t, roma.ID, 4.2)
	f.rate(t, kyoto.ID, 4.7)
	f.rate(t, taco.ID, 3.1)

	svc := f.catalog()
	ctx := context.Background()
	four := 4.0

	tests := []struct {
		name string
		in   Filters
		want []uint64
	}{
		{"default order is rating desc", Filters{}, []uint64{kyoto.ID, roma.ID, taco.ID}},
		{"cuisine", Filters{CuisineType: "ital"}, []uint64{roma.ID}},
		{"location", Filters{Location: "SPRINGFIELD"}, []uint64{roma.ID, taco.ID}},
		{"price", Filters{PriceRange: "$"}, []uint64{taco.ID}},
		{"dietary all of", Filters{DietaryRestrictions: []string{"vegetarian", "vegan"}}, []uint64{roma.ID}},
		{"rating min", Filters{RatingMin: &four}, []uint64{kyoto.ID, roma.ID}},
		{"atmosphere", Filters{Atmosphere: "family"}, []uint64{taco.ID}},
		{"order by name", Filters{OrderBy: "name"}, []uint64{kyoto.ID, roma.ID, taco.ID}},
		{"limit", Filters{Limit: 2}, []uint64{kyoto.ID, roma.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, restaurantIDs(svc.Search(ctx, tt.in)))
		})
	}
}

func TestCatalogSearch_FailSoftOnMalformedFilters(t *testing.T) {
	f := newFixture(t)
	f.restaurant(t, model.Restaurant{Name: "Roma", CuisineType: "Italian"})
	svc := f.catalog()
	ctx := context.Background()

	neg, nan := -1.0, math.NaN()
	for name, in := range map[string]Filters{
		"unknown order key":  {OrderBy: "popularity"},
		"unknown price tier": {PriceRange: "$$$$$"},
		"negative rating":    {RatingMin: &neg},
		"nan rating":         {RatingMin: &nan},
		"negative limit":     {Limit: -1},
	} {
		t.Run(name, func(t *testing.T) {
			got := svc.Search(ctx, in)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestCatalogSearch_StoreFaultReturnsEmpty(t *testing.T) {
	f := newFixture(t)
	f.restaurant(t, model.Restaurant{Name: "Roma"})
	svc := f.catalog()
	require.NoError(t, f.db.Close())

	got := svc.Search(context.Background(), Filters{})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCatalogPersist_SkipsInvalid(t *testing.T) {
	f := newFixture(t)
	svc := f.catalog()

	stored, err := svc.Persist(context.Background(), []model.Restaurant{
		{Name: "Good", Address: "1 A St", CuisineType: "Thai"},
		{Name: "", Address: "2 B St"},
		{Name: "Bad Price", Address: "3 C St", PriceRange: "cheap"},
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.NotZero(t, stored[0].ID)
	assert.Equal(t, model.DefaultCapacity, stored[0].Capacity)

	all := svc.Search(context.Background(), Filters{})
	assert.Len(t, all, 1)
}

func TestCatalogCreate_DefaultsCapacity(t *testing.T) {
	f := newFixture(t)
	svc := f.catalog()
	m := model.Restaurant{Name: "Roma", Address: "x"}
	require.NoError(t, svc.Create(context.Background(), &m))

	got, err := svc.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultCapacity, got.Capacity)
	assert.Equal(t, model.AtmosphereCasual, got.Atmosphere)
}
