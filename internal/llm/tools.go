package llm

import (
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/iliyamo/restaurant-reservation/internal/assistant"
)

var priceRanges = []string{"$", "$$", "$$$", "$$$$"}

func stringList(desc string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Items:       &jsonschema.Definition{Type: jsonschema.String},
		Description: desc,
	}
}

func slotProperties() map[string]jsonschema.Definition {
	return map[string]jsonschema.Definition{
		"restaurant_id": {Type: jsonschema.Integer, Description: "ID of the restaurant"},
		"date":          {Type: jsonschema.String, Description: "Date for the reservation (YYYY-MM-DD)"},
		"time":          {Type: jsonschema.String, Description: "Time for the reservation (HH:MM, 24-hour)"},
		"party_size":    {Type: jsonschema.Integer, Description: "Number of people"},
	}
}

// Tools returns the function definitions offered to the model. Names match
// the intents the assistant decodes.
func Tools() []openai.Tool {
	reservation := slotProperties()
	reservation["special_requests"] = jsonschema.Definition{
		Type:        jsonschema.String,
		Description: "Any special requests for the reservation",
	}

	defs := []openai.FunctionDefinition{
		{
			Name:        assistant.FnSearchRestaurants,
			Description: "Search for restaurants based on various criteria",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"location":             {Type: jsonschema.String, Description: "Location to search for restaurants"},
					"cuisine_type":         {Type: jsonschema.String, Description: "Type of cuisine"},
					"price_range":          {Type: jsonschema.String, Enum: priceRanges, Description: "Price range for restaurants"},
					"dietary_restrictions": stringList("List of dietary restrictions"),
					"atmosphere":           {Type: jsonschema.String, Description: "Desired atmosphere, e.g. romantic or casual"},
				},
			},
		},
		{
			Name:        assistant.FnCheckAvailability,
			Description: "Check restaurant availability for a specific date and time",
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: slotProperties(),
				Required:   []string{"restaurant_id", "date", "time", "party_size"},
			},
		},
		{
			Name:        assistant.FnMakeReservation,
			Description: "Make a restaurant reservation",
			Parameters: jsonschema.Definition{
				Type:       jsonschema.Object,
				Properties: reservation,
				Required:   []string{"restaurant_id", "date", "time", "party_size"},
			},
		},
		{
			Name:        assistant.FnRecommendRestaurants,
			Description: "Get personalized restaurant recommendations",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"occasion": {
						Type:        jsonschema.String,
						Enum:        assistant.Occasions,
						Description: "Type of occasion (e.g., date, business, casual, family)",
					},
					"cuisine_preferences":  stringList("Preferred types of cuisine"),
					"dietary_restrictions": stringList("Dietary restrictions"),
					"price_range":          {Type: jsonschema.String, Enum: priceRanges, Description: "Preferred price range"},
					"location":             {Type: jsonschema.String, Description: "Preferred location"},
				},
				Required: []string{"occasion"},
			},
		},
	}

	tools := make([]openai.Tool, 0, len(defs))
	for i := range defs {
		tools = append(tools, openai.Tool{Type: openai.ToolTypeFunction, Function: &defs[i]})
	}
	return tools
}
