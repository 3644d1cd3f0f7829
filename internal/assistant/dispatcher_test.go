package assistant

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/database"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
	"github.com/iliyamo/restaurant-reservation/internal/testutil"
)

type harness struct {
	restaurants  *repository.RestaurantRepo
	reservations *repository.ReservationRepo
	services     Services
	history      *MemoryHistory
	oracle       *MockOracle
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	restaurants := repository.NewRestaurantRepo(db, database.SQLite)
	reservations := repository.NewReservationRepo(db)
	catalog := service.NewCatalogService(restaurants, 1, nil)
	return &harness{
		restaurants:  restaurants,
		reservations: reservations,
		services: Services{
			Catalog:      catalog,
			Reservations: service.NewReservationService(restaurants, reservations, nil, nil),
			Recommender:  service.NewRecommendationService(catalog, reservations, nil),
		},
		history: NewMemoryHistory(0, 0),
		oracle:  &MockOracle{},
	}
}

func (h *harness) dispatcher(opts Options) *Dispatcher {
	return NewDispatcher(h.oracle, h.services, h.history, opts, nil)
}

func (h *harness) restaurant(t *testing.T, m model.Restaurant) model.Restaurant {
	t.Helper()
	if m.Address == "" {
		m.Address = "1 Main St"
	}
	if m.Capacity == 0 {
		m.Capacity = model.DefaultCapacity
	}
	require.NoError(t, h.restaurants.Create(context.Background(), &m))
	return m
}

func (h *harness) calls(function, args string) {
	h.oracle.ClassifyFunc = func(context.Context, ClassifyRequest) (*Classification, error) {
		return &Classification{Function: function, Arguments: args}, nil
	}
}

func userID(id uint64) *uint64 { return &id }

func TestHandle_EmptyInput(t *testing.T) {
	h := newHarness(t)
	called := false
	h.oracle.ClassifyFunc = func(context.Context, ClassifyRequest) (*Classification, error) {
		called = true
		return nil, nil
	}
	reply := h.dispatcher(Options{}).Handle(context.Background(), Request{Text: "   "})
	assert.Equal(t, EmptyInputReply, reply.Text)
	assert.NotEmpty(t, reply.ConversationID)
	assert.False(t, called)
}

func TestHandle_OracleFailureApologises(t *testing.T) {
	h := newHarness(t)
	h.oracle.ClassifyFunc = func(context.Context, ClassifyRequest) (*Classification, error) {
		return nil, errors.New("provider down")
	}
	reply := h.dispatcher(Options{}).Handle(context.Background(), Request{ConversationID: "c1", Text: "hi"})
	assert.Equal(t, ApologyReply, reply.Text)
	assert.Equal(t, "c1", reply.ConversationID)
}

func TestHandle_OracleTimeout(t *testing.T) {
	h := newHarness(t)
	h.oracle.ClassifyFunc = func(ctx context.Context, _ ClassifyRequest) (*Classification, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	start := time.Now()
	reply := h.dispatcher(Options{Timeout: 50 * time.Millisecond}).Handle(context.Background(), Request{Text: "hi"})
	assert.Equal(t, ApologyReply, reply.Text)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestHandle_UnknownAndInvalidIntents(t *testing.T) {
	h := newHarness(t)
	d := h.dispatcher(Options{})

	h.calls("order_pizza", `{}`)
	assert.Equal(t, ApologyReply, d.Handle(context.Background(), Request{Text: "pizza"}).Text)

	h.calls(FnCheckAvailability, `{"restaurant_id":1,"date":"tomorrow","time":"19:00","party_size":2}`)
	assert.Equal(t, ApologyReply, d.Handle(context.Background(), Request{Text: "table?"}).Text)
}

func TestHandle_FreeText(t *testing.T) {
	h := newHarness(t)
	d := h.dispatcher(Options{})

	h.oracle.ClassifyFunc = func(context.Context, ClassifyRequest) (*Classification, error) {
		return &Classification{Reply: "Bonjour!"}, nil
	}
	assert.Equal(t, "Bonjour!", d.Handle(context.Background(), Request{Text: "hello"}).Text)

	h.oracle.ClassifyFunc = func(context.Context, ClassifyRequest) (*Classification, error) {
		return &Classification{}, nil
	}
	assert.Equal(t, FallbackReply, d.Handle(context.Background(), Request{Text: "hello"}).Text)
}

func TestHandle_Search(t *testing.T) {
	h := newHarness(t)
	h.restaurant(t, model.Restaurant{Name: "Roma", CuisineType: "Italian", PriceRange: model.PriceModerate, DietaryOptions: model.DietaryTags{"vegan"}})
	h.restaurant(t, model.Restaurant{Name: "Sakura", CuisineType: "Japanese"})
	h.calls(FnSearchRestaurants, `{"cuisine_type":"italian"}`)

	reply := h.dispatcher(Options{}).Handle(context.Background(), Request{Text: "italian food"})
	assert.Equal(t, FnSearchRestaurants, reply.Intent)
	assert.True(t, strings.HasPrefix(reply.Text, "Here are some restaurants that match your criteria:"))
	assert.Contains(t, reply.Text, "- Roma ($$)")
	assert.Contains(t, reply.Text, "Rating: 0.0/5.0")
	assert.Contains(t, reply.Text, "Dietary Options: vegan")
	assert.NotContains(t, reply.Text, "Sakura")
}

func TestHandle_SearchEmptyWithoutAutoPopulate(t *testing.T) {
	h := newHarness(t)
	h.calls(FnSearchRestaurants, `{"cuisine_type":"Peruvian"}`)
	h.oracle.SynthesizeRestaurantsFunc = func(context.Context, SearchIntent, int) ([]model.Restaurant, error) {
		t.Fatal("synthesis must be opt-in")
		return nil, nil
	}
	reply := h.dispatcher(Options{}).Handle(context.Background(), Request{Text: "peruvian"})
	assert.Equal(t, EmptySearchReply, reply.Text)
}

func TestHandle_SearchAutoPopulates(t *testing.T) {
	h := newHarness(t)
	h.calls(FnSearchRestaurants, `{"cuisine_type":"Peruvian","location":"Lima"}`)
	var asked SearchIntent
	h.oracle.SynthesizeRestaurantsFunc = func(_ context.Context, q SearchIntent, n int) ([]model.Restaurant, error) {
		asked = q
		assert.Equal(t, 5, n)
		return []model.Restaurant{
			{Name: "Ceviche House", Address: "Av. Lima 1", CuisineType: "Peruvian", PriceRange: model.PriceModerate, Rating: 4.9},
			{Name: "", Address: "nowhere"},
		}, nil
	}

	purged := 0
	opts := Options{AutoPopulate: true, Invalidate: func(context.Context) error { purged++; return nil }}
	reply := h.dispatcher(opts).Handle(context.Background(), Request{Text: "peruvian in lima"})
	assert.Equal(t, "Peruvian", asked.CuisineType)
	assert.Equal(t, 1, purged, "stored restaurants must drop cached searches")
	assert.Contains(t, reply.Text, "Ceviche House")
	assert.Contains(t, reply.Text, "Rating: 0.0/5.0")

	stored := h.services.Catalog.Search(context.Background(), service.Filters{CuisineType: "peruvian"})
	require.Len(t, stored, 1)
	assert.Equal(t, "Ceviche House", stored[0].Name)
}

func TestHandle_CheckAvailability(t *testing.T) {
	h := newHarness(t)
	rest := h.restaurant(t, model.Restaurant{Name: "Roma", Capacity: 4})
	d := h.dispatcher(Options{})
	ctx := context.Background()

	h.calls(FnCheckAvailability, `{"restaurant_id":`+itoa(rest.ID)+`,"date":"2025-06-02","time":"19:00","party_size":2}`)
	assert.Equal(t, "Great news! Roma is available for 2 people at 19:00 on 2025-06-02.",
		d.Handle(ctx, Request{Text: "table?"}).Text)

	h.calls(FnCheckAvailability, `{"restaurant_id":`+itoa(rest.ID)+`,"date":"2025-06-02","time":"19:00","party_size":6}`)
	assert.Equal(t, "Sorry, Roma is fully booked at that time. Maybe try a different time?\nNearby times: 17:00, 18:00, 20:00, 21:00",
		d.Handle(ctx, Request{Text: "table for 6?"}).Text)

	h.calls(FnCheckAvailability, `{"restaurant_id":9999,"date":"2025-06-02","time":"19:00","party_size":2}`)
	assert.Equal(t, RestaurantMissingReply, d.Handle(ctx, Request{Text: "table?"}).Text)
}

func TestHandle_MakeReservation(t *testing.T) {
	h := newHarness(t)
	rest := h.restaurant(t, model.Restaurant{Name: "Roma", Capacity: 4})
	d := h.dispatcher(Options{})
	ctx := context.Background()
	args := `{"restaurant_id":` + itoa(rest.ID) + `,"date":"2025-06-02","time":"19:00","party_size":4}`
	h.calls(FnMakeReservation, args)

	assert.Equal(t, LoginRequiredReply, d.Handle(ctx, Request{Text: "book it"}).Text)

	reply := d.Handle(ctx, Request{UserID: userID(7), Text: "book it"})
	assert.True(t, strings.HasPrefix(reply.Text, "Perfect! I've made a reservation for 4 people at Roma on 2025-06-02 at 19:00.\nYour reservation ID is: "), reply.Text)

	list, err := h.reservations.ListByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.StatusConfirmed, list[0].Status)

	reply = d.Handle(ctx, Request{UserID: userID(8), Text: "book it too"})
	assert.Contains(t, reply.Text, "fully booked")
}

func TestHandle_Recommend(t *testing.T) {
	h := newHarness(t)
	h.restaurant(t, model.Restaurant{Name: "Bistro", CuisineType: "French"})
	h.restaurant(t, model.Restaurant{Name: "Roma", CuisineType: "Italian"})
	d := h.dispatcher(Options{})
	ctx := context.Background()

	h.calls(FnRecommendRestaurants, `{"occasion":"date","cuisine_preferences":["French"]}`)
	reply := d.Handle(ctx, Request{Text: "date night"})
	assert.True(t, strings.HasPrefix(reply.Text, "Here are some romantic spots perfect for a date night:\n\n"))
	assert.Contains(t, reply.Text, "Bistro")
	assert.NotContains(t, reply.Text, "Roma")
	assert.True(t, strings.HasSuffix(reply.Text, recommendFooter))

	h.calls(FnRecommendRestaurants, `{"cuisine_preferences":["Klingon"]}`)
	assert.Equal(t, NoRecommendationReply, d.Handle(ctx, Request{Text: "klingon"}).Text)
}

func TestHandle_KeepsHistory(t *testing.T) {
	h := newHarness(t)
	var seen []Message
	h.oracle.ClassifyFunc = func(_ context.Context, req ClassifyRequest) (*Classification, error) {
		seen = req.History
		return &Classification{Reply: "ok " + req.Text}, nil
	}
	d := h.dispatcher(Options{HistoryLimit: 10})
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		d.Handle(ctx, Request{ConversationID: "c1", Text: "turn " + itoa(uint64(i))})
	}
	require.Len(t, seen, 10)
	assert.Equal(t, Message{Role: RoleAssistant, Content: "ok turn 5"}, seen[9])

	d.Handle(ctx, Request{ConversationID: "other", Text: "fresh"})
	assert.Empty(t, seen)
}

func TestStream(t *testing.T) {
	h := newHarness(t)
	h.oracle.StreamReplyFunc = func(_ context.Context, _ ClassifyRequest, onDelta func(string) error) (string, error) {
		for _, chunk := range []string{"Hel", "lo", "!"} {
			if err := onDelta(chunk); err != nil {
				return "", err
			}
		}
		return "Hello!", nil
	}
	d := h.dispatcher(Options{})
	ctx := context.Background()

	var got []string
	require.NoError(t, d.Stream(ctx, Request{ConversationID: "s1", Text: "hi"}, func(s string) error {
		got = append(got, s)
		return nil
	}))
	assert.Equal(t, []string{"Hel", "lo", "!"}, got)

	hist, err := h.history.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "hi"}, {Role: RoleAssistant, Content: "Hello!"}}, hist)
}

func TestStream_FailureBeforeOutputApologises(t *testing.T) {
	h := newHarness(t)
	h.oracle.StreamReplyFunc = func(context.Context, ClassifyRequest, func(string) error) (string, error) {
		return "", errors.New("boom")
	}
	var got []string
	err := h.dispatcher(Options{}).Stream(context.Background(), Request{Text: "hi"}, func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{ApologyReply}, got)
}

func TestStream_ClientGoneSkipsHistory(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.oracle.StreamReplyFunc = func(ctx context.Context, _ ClassifyRequest, onDelta func(string) error) (string, error) {
		_ = onDelta("partial")
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}
	err := h.dispatcher(Options{}).Stream(ctx, Request{ConversationID: "s2", Text: "hi"}, func(string) error { return nil })
	require.ErrorIs(t, err, context.Canceled)

	hist, _ := h.history.Load(context.Background(), "s2")
	assert.Empty(t, hist)
}

func itoa(n uint64) string { return strconv.FormatUint(n, 10) }
