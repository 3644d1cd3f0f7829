package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/service"
)

// Catalog is the part of the catalog service the assistant uses.
type Catalog interface {
	Search(ctx context.Context, f service.Filters) []model.Restaurant
	Persist(ctx context.Context, list []model.Restaurant) ([]model.Restaurant, error)
}

// Reservations is the part of the reservation service the assistant uses.
type Reservations interface {
	CheckAvailability(ctx context.Context, restaurantID uint64, date, clock string, partySize int) (*service.Availability, error)
	Create(ctx context.Context, in service.CreateReservationInput) (*service.ReservationResult, error)
}

type Recommender interface {
	Recommend(ctx context.Context, f service.Filters, userID *uint64) []model.Restaurant
}

// Services groups the collaborators a Dispatcher routes intents to.
type Services struct {
	Catalog      Catalog
	Reservations Reservations
	Recommender  Recommender
}

// Options tune a Dispatcher. Zero values fall back to the defaults.
type Options struct {
	Timeout      time.Duration
	AutoPopulate bool
	ResultLimit  int
	HistoryLimit int
	// Invalidate, when set, runs after generated restaurants are stored so
	// cached catalog reads pick them up.
	Invalidate   func(ctx context.Context) error
}

const (
	DefaultTimeout     = 20 * time.Second
	DefaultResultLimit = 5
	synthesizeCount    = 5
)

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.ResultLimit <= 0 {
		o.ResultLimit = DefaultResultLimit
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = DefaultHistoryLimit
	}
	return o
}

// Request is one user turn. UserID is nil for anonymous callers. An empty
// ConversationID starts a new conversation.
type Request struct {
	UserID         *uint64
	ConversationID string
	Text           string
}

// Reply is the assistant's answer to one turn.
type Reply struct {
	Text           string `json:"response"`
	Intent         string `json:"intent,omitempty"`
	ConversationID string `json:"conversation_id"`
}

// Dispatcher routes classified user turns to the restaurant services.
type Dispatcher struct {
	oracle   Oracle
	services Services
	history  HistoryStore
	opts     Options
	logger   *zap.Logger
}

func NewDispatcher(oracle Oracle, services Services, history HistoryStore, opts Options, logger *zap.Logger) *Dispatcher {
	if oracle == nil {
		panic("nil oracle passed to NewDispatcher")
	}
	if services.Catalog == nil || services.Reservations == nil || services.Recommender == nil {
		panic("incomplete services passed to NewDispatcher")
	}
	opts = opts.withDefaults()
	if history == nil {
		history = NewMemoryHistory(opts.HistoryLimit, DefaultHistoryTTL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		oracle:   oracle,
		services: services,
		history:  history,
		opts:     opts,
		logger:   logger.Named("assistant"),
	}
}

// Handle answers one turn. It never returns an error: failures become a
// polite reply and a log line.
func (d *Dispatcher) Handle(ctx context.Context, req Request) Reply {
	text := strings.TrimSpace(req.Text)
	convID := conversationID(req.ConversationID)
	if text == "" {
		return Reply{Text: EmptyInputReply, ConversationID: convID}
	}

	cr := ClassifyRequest{Text: text, History: d.loadHistory(ctx, convID), Authenticated: req.UserID != nil}

	octx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	c, err := d.oracle.Classify(octx, cr)
	cancel()
	if err != nil {
		metrics.OracleErrors.WithLabelValues("classify").Inc()
		d.logger.Error("classify failed", zap.String("conversation_id", convID), zap.Error(err))
		return d.finish(ctx, convID, text, "", ApologyReply)
	}

	intent, err := DecodeIntent(c)
	if err != nil {
		d.logger.Warn("undecodable intent",
			zap.String("conversation_id", convID),
			zap.String("function", c.Function),
			zap.Error(err))
		return d.finish(ctx, convID, text, "", ApologyReply)
	}
	metrics.AssistantIntents.WithLabelValues(intent.Name()).Inc()

	return d.finish(ctx, convID, text, intent.Name(), d.dispatch(ctx, req.UserID, intent))
}

func (d *Dispatcher) dispatch(ctx context.Context, userID *uint64, intent Intent) string {
	switch in := intent.(type) {
	case SearchIntent:
		return formatSearch(d.search(ctx, in))

	case CheckAvailabilityIntent:
		a, err := d.services.Reservations.CheckAvailability(ctx, in.RestaurantID, in.Date, in.Time, in.PartySize)
		if err != nil {
			return d.serviceFailure("check availability", err)
		}
		return formatAvailability(a)

	case MakeReservationIntent:
		if userID == nil {
			return LoginRequiredReply
		}
		res, err := d.services.Reservations.Create(ctx, service.CreateReservationInput{
			RestaurantID:    in.RestaurantID,
			UserID:          *userID,
			Date:            in.Date,
			Time:            in.Time,
			PartySize:       in.PartySize,
			SpecialRequests: in.SpecialRequests,
			Status:          model.StatusConfirmed,
		})
		if err != nil {
			return d.serviceFailure("make reservation", err)
		}
		return formatReservation(in, res)

	case RecommendIntent:
		list := d.services.Recommender.Recommend(ctx, service.Filters{
			CuisineAny:          in.CuisinePreferences,
			DietaryRestrictions: in.DietaryRestrictions,
			PriceRange:          in.PriceRange,
			Location:            in.Location,
			Limit:               d.opts.ResultLimit,
		}, userID)
		return formatRecommendations(in.Occasion, list)

	case FreeTextIntent:
		if strings.TrimSpace(in.Reply) == "" {
			return FallbackReply
		}
		return in.Reply
	}
	return FallbackReply
}

// search runs the catalog query and, when enabled, asks the oracle to fill
// an empty result with generated restaurants that are then stored.
func (d *Dispatcher) search(ctx context.Context, in SearchIntent) []model.Restaurant {
	list := d.services.Catalog.Search(ctx, service.Filters{
		CuisineType:         in.CuisineType,
		Location:            in.Location,
		PriceRange:          in.PriceRange,
		DietaryRestrictions: in.DietaryRestrictions,
		Atmosphere:          in.Atmosphere,
		Limit:               d.opts.ResultLimit,
	})
	if len(list) > 0 || !d.opts.AutoPopulate {
		return list
	}

	octx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	generated, err := d.oracle.SynthesizeRestaurants(octx, in, synthesizeCount)
	cancel()
	if err != nil {
		metrics.OracleErrors.WithLabelValues("synthesize").Inc()
		d.logger.Error("synthesize restaurants failed", zap.Error(err))
		return nil
	}
	stored, err := d.services.Catalog.Persist(ctx, generated)
	if err != nil {
		d.logger.Error("persist generated restaurants failed", zap.Error(err))
		return nil
	}
	d.logger.Info("auto-populated restaurants", zap.Int("count", len(stored)))
	if d.opts.Invalidate != nil {
		if err := d.opts.Invalidate(ctx); err != nil {
			d.logger.Warn("cache purge failed", zap.Error(err))
		}
	}
	if len(stored) > d.opts.ResultLimit {
		stored = stored[:d.opts.ResultLimit]
	}
	return stored
}

func (d *Dispatcher) serviceFailure(op string, err error) string {
	switch {
	case errors.Is(err, repository.ErrRestaurantNotFound):
		return RestaurantMissingReply
	case errors.Is(err, service.ErrInvalidDateTime), errors.Is(err, service.ErrInvalidPartySize):
		return BadSlotReply
	}
	d.logger.Error(op+" failed", zap.Error(err))
	return ApologyReply
}

// Stream answers one turn in prose, passing each chunk to emit as it
// arrives. Oracle failures before the first chunk are replaced by the
// apology; the returned error is non-nil only when emit fails or ctx ends.
// History is written once the reply is complete.
func (d *Dispatcher) Stream(ctx context.Context, req Request, emit func(string) error) error {
	text := strings.TrimSpace(req.Text)
	convID := conversationID(req.ConversationID)
	if text == "" {
		return emit(EmptyInputReply)
	}

	cr := ClassifyRequest{Text: text, History: d.loadHistory(ctx, convID), Authenticated: req.UserID != nil}

	octx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	emitted := false
	full, err := d.oracle.StreamReply(octx, cr, func(delta string) error {
		if delta == "" {
			return nil
		}
		emitted = true
		return emit(delta)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		metrics.OracleErrors.WithLabelValues("stream").Inc()
		d.logger.Error("stream reply failed",
			zap.String("conversation_id", convID),
			zap.Bool("partial", emitted),
			zap.Error(err))
		if emitted {
			return nil
		}
		full = ApologyReply
		if err := emit(full); err != nil {
			return err
		}
	}
	if strings.TrimSpace(full) == "" {
		full = FallbackReply
		if err := emit(full); err != nil {
			return err
		}
	}
	d.appendHistory(ctx, convID, text, full)
	return nil
}

// conversationID returns the id the reply belongs to, allocating one when
// the caller did not supply it.
func conversationID(id string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return uuid.NewString()
}

func (d *Dispatcher) finish(ctx context.Context, convID, text, intent, reply string) Reply {
	d.appendHistory(ctx, convID, text, reply)
	return Reply{Text: reply, Intent: intent, ConversationID: convID}
}

func (d *Dispatcher) loadHistory(ctx context.Context, convID string) []Message {
	msgs, err := d.history.Load(ctx, convID)
	if err != nil {
		d.logger.Warn("history unavailable", zap.String("conversation_id", convID), zap.Error(err))
		return nil
	}
	if over := len(msgs) - d.opts.HistoryLimit; over > 0 {
		msgs = msgs[over:]
	}
	return msgs
}

func (d *Dispatcher) appendHistory(ctx context.Context, convID, text, reply string) {
	err := d.history.Append(ctx, convID,
		Message{Role: RoleUser, Content: text},
		Message{Role: RoleAssistant, Content: reply})
	if err != nil {
		d.logger.Warn("history not saved", zap.String("conversation_id", convID), zap.Error(err))
	}
}
