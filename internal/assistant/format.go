package assistant

import (
	"fmt"
	"strings"

	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// Fixed replies.
const (
	EmptyInputReply        = "I didn't receive any input. How can I help you?"
	ApologyReply           = "I apologize, but I encountered an error processing your request. Please try again or rephrase your question."
	LoginRequiredReply     = "To make a reservation, please log in first. However, I can still help you find restaurants and check availability!"
	FallbackReply          = "I understand your request. How else can I help you?"
	EmptySearchReply       = "Sorry, I couldn't find or generate any restaurant information. Please try a different search."
	NoRecommendationReply  = "I couldn't find any restaurants matching your specific criteria. Would you like me to broaden the search?"
	RestaurantMissingReply = "Sorry, I couldn't find that restaurant."
	BadSlotReply           = "Sorry, I couldn't read that date, time or party size. Please use YYYY-MM-DD for the date and HH:MM for the time."
	recommendFooter        = "Would you like to check availability or make a reservation at any of these restaurants?"
)

var occasionIntros = map[string]string{
	"date":        "Here are some romantic spots perfect for a date night:",
	"business":    "These restaurants offer a professional atmosphere ideal for business meetings:",
	"casual":      "For a relaxed dining experience, consider these options:",
	"family":      "These family-friendly restaurants should be perfect:",
	"celebration": "These restaurants are great for special celebrations:",
}

const defaultIntro = "Here are some recommendations:"

// OccasionIntro returns the opening line for a recommendation reply.
func OccasionIntro(occasion string) string {
	if intro, ok := occasionIntros[strings.ToLower(strings.TrimSpace(occasion))]; ok {
		return intro
	}
	return defaultIntro
}

func formatSearch(list []model.Restaurant) string {
	if len(list) == 0 {
		return EmptySearchReply
	}
	var b strings.Builder
	b.WriteString("Here are some restaurants that match your criteria:\n\n")
	for _, r := range list {
		writeRestaurant(&b, r)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatRecommendations(occasion string, list []model.Restaurant) string {
	if len(list) == 0 {
		return NoRecommendationReply
	}
	var b strings.Builder
	b.WriteString(OccasionIntro(occasion))
	b.WriteString("\n\n")
	for _, r := range list {
		writeRestaurant(&b, r)
	}
	b.WriteString(recommendFooter)
	return b.String()
}

func writeRestaurant(b *strings.Builder, r model.Restaurant) {
	fmt.Fprintf(b, "- %s (%s) [id %d]\n", r.Name, r.PriceRange, r.ID)
	fmt.Fprintf(b, "  Cuisine: %s\n", r.CuisineType)
	fmt.Fprintf(b, "  Address: %s\n", r.Address)
	fmt.Fprintf(b, "  Rating: %.1f/5.0\n", r.Rating)
	if len(r.DietaryOptions) > 0 {
		fmt.Fprintf(b, "  Dietary Options: %s\n", strings.Join(r.DietaryOptions, ", "))
	}
	b.WriteString("\n")
}

func formatAvailability(a *service.Availability) string {
	switch {
	case a.Available:
		return fmt.Sprintf("Great news! %s is available for %d people at %s on %s.",
			a.RestaurantName, a.PartySize, a.Time, a.Date)
	case len(a.AlternativeTimes) == 0:
		return fmt.Sprintf("Sorry, %s.", a.Message)
	}
	return fmt.Sprintf("Sorry, %s is fully booked at that time. Maybe try a different time?\nNearby times: %s",
		a.RestaurantName, strings.Join(a.AlternativeTimes, ", "))
}

func formatReservation(in MakeReservationIntent, res *service.ReservationResult) string {
	if !res.Success {
		if res.Availability != nil {
			return formatAvailability(res.Availability)
		}
		return "Sorry, " + res.Message
	}
	return fmt.Sprintf("Perfect! I've made a reservation for %d people at %s on %s at %s.\nYour reservation ID is: %d",
		in.PartySize, res.RestaurantName, in.Date, in.Time, res.ReservationID)
}
