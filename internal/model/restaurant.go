package model

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// PriceRange is one of four ordered price tiers.
type PriceRange string

const (
	PriceBudget    PriceRange = "$"
	PriceModerate  PriceRange = "$$"
	PriceExpensive PriceRange = "$$$"
	PriceLuxury    PriceRange = "$$$$"
)

// Valid reports whether p is one of the known tiers.
func (p PriceRange) Valid() bool {
	switch p {
	case PriceBudget, PriceModerate, PriceExpensive, PriceLuxury:
		return true
	}
	return false
}

// Atmosphere describes the dining room.
type Atmosphere string

const (
	AtmosphereRomantic Atmosphere = "romantic"
	AtmosphereCasual   Atmosphere = "casual"
	AtmosphereFormal   Atmosphere = "formal"
	AtmosphereFamily   Atmosphere = "family"
	AtmosphereTrendy   Atmosphere = "trendy"
	AtmosphereBusiness Atmosphere = "business"
)

func (a Atmosphere) Valid() bool {
	switch a {
	case AtmosphereRomantic, AtmosphereCasual, AtmosphereFormal,
		AtmosphereFamily, AtmosphereTrendy, AtmosphereBusiness:
		return true
	}
	return false
}

// NoiseLevel describes how loud the restaurant usually is.
type NoiseLevel string

const (
	NoiseQuiet    NoiseLevel = "quiet"
	NoiseModerate NoiseLevel = "moderate"
	NoiseLoud     NoiseLevel = "loud"
)

func (n NoiseLevel) Valid() bool {
	switch n {
	case NoiseQuiet, NoiseModerate, NoiseLoud:
		return true
	}
	return false
}

// Defaults applied to new restaurants when the caller leaves a field empty.
const (
	DefaultCapacity          = 50
	DefaultAverageDiningTime = 60
)

// Restaurant is a row of the `restaurants` table together with its
// dietary tags from `restaurant_dietary_tags`.
//
// Rating is derived: it is the mean of all review ratings for the
// restaurant and is only written by the review path.
type Restaurant struct {
	ID                uint64         `json:"id"`
	Name              string         `json:"name"`
	Address           string         `json:"address"`
	CuisineType       string         `json:"cuisine_type"`
	PriceRange        PriceRange     `json:"price_range"`
	Rating            float64        `json:"rating"`
	Latitude          *float64       `json:"latitude,omitempty"`
	Longitude         *float64       `json:"longitude,omitempty"`
	Capacity          int            `json:"capacity"`
	OperatingHours    OperatingHours `json:"operating_hours"`
	DietaryOptions    DietaryTags    `json:"dietary_options"`
	Atmosphere        Atmosphere     `json:"atmosphere"`
	NoiseLevel        NoiseLevel     `json:"noise_level"`
	AverageDiningTime int            `json:"average_dining_time"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// ApplyDefaults fills zero-valued optional fields.
func (r *Restaurant) ApplyDefaults() {
	if r.PriceRange == "" {
		r.PriceRange = PriceModerate
	}
	if r.Atmosphere == "" {
		r.Atmosphere = AtmosphereCasual
	}
	if r.NoiseLevel == "" {
		r.NoiseLevel = NoiseModerate
	}
	if r.AverageDiningTime == 0 {
		r.AverageDiningTime = DefaultAverageDiningTime
	}
	if r.OperatingHours == nil {
		r.OperatingHours = OperatingHours{}
	}
	r.DietaryOptions = NewDietaryTags(r.DietaryOptions...)
}

// Validate checks the invariants the store relies on.
func (r *Restaurant) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(r.Address) == "" {
		return fmt.Errorf("address is required")
	}
	if !r.PriceRange.Valid() {
		return fmt.Errorf("invalid price range %q", r.PriceRange)
	}
	if r.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	if !r.Atmosphere.Valid() {
		return fmt.Errorf("invalid atmosphere %q", r.Atmosphere)
	}
	if !r.NoiseLevel.Valid() {
		return fmt.Errorf("invalid noise level %q", r.NoiseLevel)
	}
	if r.AverageDiningTime < 0 {
		return fmt.Errorf("average dining time must not be negative")
	}
	return r.OperatingHours.Validate()
}

// DietaryTags is a set of normalised (trimmed, lower-case) tags kept in
// sorted order.
type DietaryTags []string

// NewDietaryTags normalises, de-duplicates and sorts the given tags.
// Empty tags are dropped.
func NewDietaryTags(tags ...string) DietaryTags {
	seen := make(map[string]struct{}, len(tags))
	out := make(DietaryTags, 0, len(tags))
	for _, t := range tags {
		t = NormalizeTag(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// NormalizeTag is the canonical form a dietary tag is stored and matched in.
func NormalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// Has reports whether the set contains tag (after normalisation).
func (d DietaryTags) Has(tag string) bool {
	tag = NormalizeTag(tag)
	i := sort.SearchStrings(d, tag)
	return i < len(d) && d[i] == tag
}
