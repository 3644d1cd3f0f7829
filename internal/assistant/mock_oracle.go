package assistant

import (
	"context"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// MockOracle is a test double for Oracle. Unset funcs return zero values.
type MockOracle struct {
	ClassifyFunc              func(ctx context.Context, req ClassifyRequest) (*Classification, error)
	StreamReplyFunc           func(ctx context.Context, req ClassifyRequest, onDelta func(string) error) (string, error)
	SynthesizeRestaurantsFunc func(ctx context.Context, q SearchIntent, n int) ([]model.Restaurant, error)
}

var _ Oracle = (*MockOracle)(nil)

func (m *MockOracle) Classify(ctx context.Context, req ClassifyRequest) (*Classification, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return &Classification{}, nil
}

func (m *MockOracle) StreamReply(ctx context.Context, req ClassifyRequest, onDelta func(string) error) (string, error) {
	if m.StreamReplyFunc != nil {
		return m.StreamReplyFunc(ctx, req, onDelta)
	}
	return "", nil
}

func (m *MockOracle) SynthesizeRestaurants(ctx context.Context, q SearchIntent, n int) ([]model.Restaurant, error) {
	if m.SynthesizeRestaurantsFunc != nil {
		return m.SynthesizeRestaurantsFunc(ctx, q, n)
	}
	return nil, nil
}
