// Package assistant turns free text into calls on the restaurant services.
// An external language model (the Oracle) classifies each message into one
// of a closed set of intents; the Dispatcher validates the intent and routes
// it to search, availability, booking or recommendations.
package assistant

import (
	"context"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// Message roles kept in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClassifyRequest is what the oracle sees for one user turn.
type ClassifyRequest struct {
	Text          string
	History       []Message
	Authenticated bool
}

// Classification is the raw oracle output. Function is empty when the
// model answered in prose; Arguments holds the JSON it produced otherwise.
type Classification struct {
	Function  string
	Arguments string
	Reply     string
}

// Oracle is the language model boundary. Implementations must honour ctx
// cancellation.
type Oracle interface {
	// Classify maps one user turn to a function call or a prose reply.
	Classify(ctx context.Context, req ClassifyRequest) (*Classification, error)
	// StreamReply produces a prose answer, calling onDelta for each chunk,
	// and returns the full text.
	StreamReply(ctx context.Context, req ClassifyRequest, onDelta func(string) error) (string, error)
	// SynthesizeRestaurants invents up to n plausible restaurants for a search
	// that found nothing.
	SynthesizeRestaurants(ctx context.Context, q SearchIntent, n int) ([]model.Restaurant, error)
}
