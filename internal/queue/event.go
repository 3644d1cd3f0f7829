// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the log consumer for them.
package queue

import (
    "time"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationQueue is the durable queue every reservation event goes to.
const ReservationQueue = "reservation.events"

// Event types carried in ReservationEvent.Type.
const (
    EventReservationCreated   = "reservation.created"
    EventReservationConfirmed = "reservation.confirmed"
    EventReservationCancelled = "reservation.cancelled"
    EventReservationCompleted = "reservation.completed"
)

// ReservationEvent is published after a reservation is created or changes
// status. It carries enough for downstream consumers to log or notify
// without querying the primary database.
type ReservationEvent struct {
    Type           string `json:"type"`
    ReservationID  uint64 `json:"reservation_id"`
    RestaurantID   uint64 `json:"restaurant_id"`
    RestaurantName string `json:"restaurant_name,omitempty"`
    UserID         uint64 `json:"user_id"`
    PartySize      int    `json:"party_size"`
    ReservedAt     string `json:"reserved_at"`
    Status         string `json:"status"`
    OccurredAt     string `json:"occurred_at"`
}

// EventFor builds the event for a reservation in its current state.
func EventFor(typ string, m *model.Reservation, restaurantName string) ReservationEvent {
    return ReservationEvent{
        Type:           typ,
        ReservationID:  m.ID,
        RestaurantID:   m.RestaurantID,
        RestaurantName: restaurantName,
        UserID:         m.UserID,
        PartySize:      m.PartySize,
        ReservedAt:     m.ReservedAt.UTC().Format(time.RFC3339),
        Status:         string(m.Status),
        OccurredAt:     time.Now().UTC().Format(time.RFC3339),
    }
}

// EventTypeFor maps a status reached by a transition to its event type.
func EventTypeFor(s model.ReservationStatus) string {
    switch s {
    case model.StatusConfirmed:
        return EventReservationConfirmed
    case model.StatusCancelled:
        return EventReservationCancelled
    case model.StatusCompleted:
        return EventReservationCompleted
    }
    return EventReservationCreated
}
