package assistant

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/validation"
)

// Function names the oracle may call.
const (
	FnSearchRestaurants    = "search_restaurants"
	FnCheckAvailability    = "check_availability"
	FnMakeReservation      = "make_reservation"
	FnRecommendRestaurants = "recommend_restaurants"
)

// Occasions accepted by recommend_restaurants.
var Occasions = []string{"date", "business", "casual", "family", "celebration"}

var (
	ErrUnknownIntent     = errors.New("unknown intent")
	ErrInvalidIntentArgs = errors.New("invalid intent arguments")
)

// Intent is the closed set of things the assistant can do. Only the types
// in this file implement it.
type Intent interface {
	Name() string
	isIntent()
}

type SearchIntent struct {
	Location            string   `json:"location,omitempty"`
	CuisineType         string   `json:"cuisine_type,omitempty"`
	PriceRange          string   `json:"price_range,omitempty" validate:"omitempty,oneof=$ $$ $$$ $$$$"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	Atmosphere          string   `json:"atmosphere,omitempty"`
}

type CheckAvailabilityIntent struct {
	RestaurantID uint64 `json:"restaurant_id" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required,datetime=15:04"`
	PartySize    int    `json:"party_size" validate:"required,gte=1"`
}

type MakeReservationIntent struct {
	RestaurantID    uint64 `json:"restaurant_id" validate:"required"`
	Date            string `json:"date" validate:"required,datetime=2006-01-02"`
	Time            string `json:"time" validate:"required,datetime=15:04"`
	PartySize       int    `json:"party_size" validate:"required,gte=1"`
	SpecialRequests string `json:"special_requests,omitempty" validate:"max=1000"`
}

type RecommendIntent struct {
	Occasion            string   `json:"occasion,omitempty" validate:"omitempty,oneof=date business casual family celebration"`
	CuisinePreferences  []string `json:"cuisine_preferences,omitempty"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	PriceRange          string   `json:"price_range,omitempty" validate:"omitempty,oneof=$ $$ $$$ $$$$"`
	Location            string   `json:"location,omitempty"`
}

// FreeTextIntent is a prose answer with no service call behind it.
type FreeTextIntent struct {
	Reply string
}

func (SearchIntent) Name() string            { return FnSearchRestaurants }
func (CheckAvailabilityIntent) Name() string { return FnCheckAvailability }
func (MakeReservationIntent) Name() string   { return FnMakeReservation }
func (RecommendIntent) Name() string         { return FnRecommendRestaurants }
func (FreeTextIntent) Name() string          { return "free_text" }

func (SearchIntent) isIntent()            {}
func (CheckAvailabilityIntent) isIntent() {}
func (MakeReservationIntent) isIntent()   {}
func (RecommendIntent) isIntent()         {}
func (FreeTextIntent) isIntent()          {}

// DecodeIntent converts an oracle classification into an Intent. A function
// name outside the known set yields ErrUnknownIntent; arguments that do not
// parse or validate yield ErrInvalidIntentArgs.
func DecodeIntent(c *Classification) (Intent, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: empty classification", ErrUnknownIntent)
	}
	switch c.Function {
	case "":
		return FreeTextIntent{Reply: c.Reply}, nil
	case FnSearchRestaurants:
		return decodeArgs[SearchIntent](c.Arguments)
	case FnCheckAvailability:
		return decodeArgs[CheckAvailabilityIntent](c.Arguments)
	case FnMakeReservation:
		return decodeArgs[MakeReservationIntent](c.Arguments)
	case FnRecommendRestaurants:
		return decodeArgs[RecommendIntent](c.Arguments)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownIntent, c.Function)
}

func decodeArgs[T Intent](raw string) (Intent, error) {
	var v T
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntentArgs, err)
	}
	if err := validation.Struct(v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIntentArgs, err)
	}
	return v, nil
}
