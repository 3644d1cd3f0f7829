package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/assistant"
	"github.com/iliyamo/restaurant-reservation/internal/model"
)

func synthesisPrompt(q assistant.SearchIntent, n int) string {
	cuisine := q.CuisineType
	if cuisine == "" {
		cuisine = "various"
	}
	location := q.Location
	if location == "" {
		location = "the area"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d realistic restaurant entries for %s cuisine in %s. ", n, cuisine, location)
	if q.PriceRange != "" {
		fmt.Fprintf(&b, "Every entry must have price range %s. ", q.PriceRange)
	}
	if len(q.DietaryRestrictions) > 0 {
		fmt.Fprintf(&b, "Every entry must offer these dietary options: %s. ", strings.Join(q.DietaryRestrictions, ", "))
	}
	b.WriteString(`Return a JSON object {"restaurants": [...]} where each entry has name, address, ` +
		`price_range ($-$$$$), cuisine_type, dietary_options (array of strings), capacity (integer) ` +
		`and operating_hours (object mapping lower-case weekday to "HH:MM-HH:MM").`)
	return b.String()
}

type generatedRestaurant struct {
	Name           string          `json:"name"`
	Address        string          `json:"address"`
	PriceRange     string          `json:"price_range"`
	CuisineType    string          `json:"cuisine_type"`
	DietaryOptions []string        `json:"dietary_options"`
	Capacity       int             `json:"capacity"`
	Atmosphere     string          `json:"atmosphere"`
	OperatingHours json.RawMessage `json:"operating_hours"`
}

// ParseRestaurants reads the {"restaurants": [...]} document the model
// returns, keeping at most n entries. Missing or unreadable hours become the
// default week. Ratings the model invents are dropped; new restaurants
// start unrated.
func ParseRestaurants(content string, n int) ([]model.Restaurant, error) {
	content = stripCodeFence(content)
	var doc struct {
		Restaurants []generatedRestaurant `json:"restaurants"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return nil, err
	}

	out := make([]model.Restaurant, 0, len(doc.Restaurants))
	for _, g := range doc.Restaurants {
		if n > 0 && len(out) == n {
			break
		}
		hours := model.OperatingHours{}
		if len(g.OperatingHours) == 0 || json.Unmarshal(g.OperatingHours, &hours) != nil || len(hours) == 0 {
			hours = model.DefaultOperatingHours()
		}
		out = append(out, model.Restaurant{
			Name:           strings.TrimSpace(g.Name),
			Address:        strings.TrimSpace(g.Address),
			PriceRange:     model.PriceRange(strings.TrimSpace(g.PriceRange)),
			CuisineType:    strings.TrimSpace(g.CuisineType),
			DietaryOptions: model.NewDietaryTags(g.DietaryOptions...),
			Capacity:       g.Capacity,
			Atmosphere:     model.Atmosphere(strings.ToLower(strings.TrimSpace(g.Atmosphere))),
			OperatingHours: hours,
		})
	}
	return out, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
