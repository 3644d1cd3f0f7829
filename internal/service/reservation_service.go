package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/restaurant-reservation/internal/metrics"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
)

// Input formats for reservation dates and times.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// LegacySlotLimit is the older availability rule: at most this many
// reservations of any status in one exact-minute slot. It is kept for
// reference; admission uses restaurant capacity instead.
const LegacySlotLimit = 5

// NoAvailabilityMessage is returned with the alternatives when a slot is full.
const NoAvailabilityMessage = "No availability at the requested time"

var (
	ErrInvalidDateTime  = errors.New("invalid date or time format")
	ErrInvalidPartySize = errors.New("party size must be positive")
)

// alternativeOffsets are tried in this order when a slot is full.
var alternativeOffsets = []time.Duration{-2 * time.Hour, -time.Hour, time.Hour, 2 * time.Hour}

// Availability is the outcome of an availability check. A full slot or a
// closed day is a normal result, not an error.
type Availability struct {
	Available        bool     `json:"available"`
	RestaurantID     uint64   `json:"restaurant_id"`
	RestaurantName   string   `json:"restaurant_name"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
	PartySize        int      `json:"party_size"`
	Remaining        int      `json:"remaining"`
	Message          string   `json:"message,omitempty"`
	AlternativeTimes []string `json:"alternative_times,omitempty"`
}

// CreateReservationInput carries the caller's booking request. Date and Time
// are echoed back verbatim in the confirmation message.
type CreateReservationInput struct {
	RestaurantID    uint64
	UserID          uint64
	Date            string
	Time            string
	PartySize       int
	SpecialRequests string
	Status          model.ReservationStatus // pending when empty
}

// ReservationResult reports a create attempt. When Success is false the
// Availability explains why.
type ReservationResult struct {
	Success        bool          `json:"success"`
	ReservationID  uint64        `json:"reservation_id,omitempty"`
	RestaurantName string        `json:"restaurant_name,omitempty"`
	Message        string        `json:"message"`
	Availability   *Availability `json:"availability,omitempty"`
}

// EventPublisher receives reservation events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// ReservationService owns the availability rule and the booking workflow.
type ReservationService struct {
	restaurants  *repository.RestaurantRepo
	reservations *repository.ReservationRepo
	events       EventPublisher
	logger       *zap.Logger
}

// NewReservationService wires the service. events may be nil, in which case
// nothing is published.
func NewReservationService(restaurants *repository.RestaurantRepo, reservations *repository.ReservationRepo, events EventPublisher, logger *zap.Logger) *ReservationService {
	if restaurants == nil || reservations == nil {
		panic("nil repo passed to NewReservationService")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReservationService{
		restaurants:  restaurants,
		reservations: reservations,
		events:       events,
		logger:       logger.Named("reservations"),
	}
}

// ParseSlot combines a YYYY-MM-DD date and an HH:MM time into a UTC slot.
func ParseSlot(date, clock string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidDateTime, date)
	}
	c, err := time.Parse(TimeLayout, strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidDateTime, clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), 0, 0, time.UTC), nil
}

// AlternativeTimes returns the slots two and one hours before and one and
// two hours after slot, as HH:MM. They wrap around midnight and are not
// checked against opening hours.
func AlternativeTimes(slot time.Time) []string {
	out := make([]string, 0, len(alternativeOffsets))
	for _, off := range alternativeOffsets {
		out = append(out, slot.Add(off).Format(TimeLayout))
	}
	return out
}

// CheckAvailability reports whether partySize more guests fit into the
// slot. It reads only.
func (s *ReservationService) CheckAvailability(ctx context.Context, restaurantID uint64, date, clock string, partySize int) (*Availability, error) {
	slot, err := ParseSlot(date, clock)
	if err != nil {
		return nil, err
	}
	if partySize <= 0 {
		return nil, ErrInvalidPartySize
	}
	rest, err := s.restaurants.GetByID(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	booked, err := s.reservations.BookedPartySize(ctx, restaurantID, slot)
	if err != nil {
		return nil, fmt.Errorf("booked party size: %w", err)
	}
	return evaluate(rest, slot, date, clock, partySize, booked), nil
}

// evaluate applies the closed-day check and the capacity rule.
func evaluate(rest *model.Restaurant, slot time.Time, date, clock string, partySize, booked int) *Availability {
	a := &Availability{
		RestaurantID:   rest.ID,
		RestaurantName: rest.Name,
		Date:           date,
		Time:           clock,
		PartySize:      partySize,
		Remaining:      max(rest.Capacity-booked, 0),
	}
	if !rest.OperatingHours.OpenOn(slot.Weekday()) {
		a.Message = fmt.Sprintf("%s is closed on %s", rest.Name, strings.ToLower(slot.Weekday().String()))
		return a
	}
	if booked+partySize > rest.Capacity {
		a.Message = NoAvailabilityMessage
		a.AlternativeTimes = AlternativeTimes(slot)
		return a
	}
	a.Available = true
	return a
}

// Create books a table. The capacity check and the insert happen in one
// transaction holding the restaurant row lock, so two requests racing for
// the last seats cannot both succeed. A full slot is reported through
// ReservationResult, not as an error.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*ReservationResult, error) {
	slot, err := ParseSlot(in.Date, in.Time)
	if err != nil {
		return nil, err
	}
	if in.PartySize <= 0 {
		return nil, ErrInvalidPartySize
	}
	status := in.Status
	if status == "" {
		status = model.StatusPending
	}

	tx, err := s.reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	rest, err := s.restaurants.LockTx(ctx, tx, in.RestaurantID)
	if err != nil {
		return nil, err
	}
	booked, err := s.reservations.BookedPartySizeTx(ctx, tx, in.RestaurantID, slot)
	if err != nil {
		metrics.ReservationAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("booked party size: %w", err)
	}
	avail := evaluate(rest, slot, in.Date, in.Time, in.PartySize, booked)
	if !avail.Available {
		outcome := "full"
		if avail.AlternativeTimes == nil {
			outcome = "closed"
		}
		metrics.ReservationAttempts.WithLabelValues(outcome).Inc()
		return &ReservationResult{Success: false, Message: avail.Message, Availability: avail}, nil
	}

	m := &model.Reservation{
		RestaurantID:    in.RestaurantID,
		UserID:          in.UserID,
		PartySize:       in.PartySize,
		ReservedAt:      slot,
		Status:          status,
		SpecialRequests: strings.TrimSpace(in.SpecialRequests),
	}
	if err := s.reservations.CreateTx(ctx, tx, m); err != nil {
		metrics.ReservationAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("create reservation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		metrics.ReservationAttempts.WithLabelValues("error").Inc()
		return nil, err
	}
	committed = true
	metrics.ReservationAttempts.WithLabelValues("created").Inc()

	s.logger.Info("reservation created",
		zap.Uint64("reservation_id", m.ID),
		zap.Uint64("restaurant_id", m.RestaurantID),
		zap.Uint64("user_id", m.UserID),
		zap.Int("party_size", m.PartySize),
		zap.Time("reserved_at", m.ReservedAt))
	s.publish(queue.EventFor(queue.EventReservationCreated, m, rest.Name))

	return &ReservationResult{
		Success:        true,
		ReservationID:  m.ID,
		RestaurantName: rest.Name,
		Message:        fmt.Sprintf("Reservation successfully created for %s at %s", in.Date, in.Time),
	}, nil
}

// Get returns a reservation. Diners may only read their own.
func (s *ReservationService) Get(ctx context.Context, id, userID uint64, isAdmin bool) (*model.Reservation, error) {
	m, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isAdmin && m.UserID != userID {
		return nil, repository.ErrForbidden
	}
	return m, nil
}

// ListByUser returns a user's reservations, newest slot first.
func (s *ReservationService) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	return s.reservations.ListByUser(ctx, userID)
}

// Confirm moves a pending reservation to confirmed.
func (s *ReservationService) Confirm(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.transition(ctx, id, model.StatusConfirmed)
}

// Complete marks a confirmed reservation as honoured.
func (s *ReservationService) Complete(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.transition(ctx, id, model.StatusCompleted)
}

// Cancel cancels a pending or confirmed reservation. Diners may only cancel
// their own.
func (s *ReservationService) Cancel(ctx context.Context, id, userID uint64, isAdmin bool) (*model.Reservation, error) {
	if !isAdmin {
		if _, err := s.Get(ctx, id, userID, false); err != nil {
			return nil, err
		}
	}
	return s.transition(ctx, id, model.StatusCancelled)
}

func (s *ReservationService) transition(ctx context.Context, id uint64, next model.ReservationStatus) (*model.Reservation, error) {
	m, err := s.reservations.TransitionStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	metrics.ReservationTransitions.WithLabelValues(string(next)).Inc()
	s.logger.Info("reservation status changed", zap.Uint64("reservation_id", id), zap.String("status", string(next)))
	s.publish(queue.EventFor(queue.EventTypeFor(next), m, ""))
	return m, nil
}

// publish sends ev in the background. Delivery is best effort; the
// reservation is already committed.
func (s *ReservationService) publish(ev queue.ReservationEvent) {
	if s.events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.events.Publish(ctx, ev); err != nil {
			s.logger.Warn("event publish failed", zap.String("type", ev.Type),
				zap.Uint64("reservation_id", ev.ReservationID), zap.Error(err))
		}
	}()
}
