package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCancelled ReservationStatus = "cancelled"
	StatusCompleted ReservationStatus = "completed"
)

// ActiveStatuses hold seats in a slot.
var ActiveStatuses = []ReservationStatus{StatusPending, StatusConfirmed}

// CanTransitionTo reports whether s may move to next.
//
//  pending   -> confirmed | cancelled
//  confirmed -> cancelled | completed
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusCancelled || next == StatusCompleted
	}
	return false
}

// Reservation records a user's booking of a table at a restaurant.
//
// Fields:
//  ID              – primary key identifier.
//  RestaurantID    – restaurant being booked.
//  UserID          – user who made the reservation.
//  PartySize       – number of guests.
//  ReservedAt      – slot, minute precision, UTC wall time.
//  Status          – pending, confirmed, cancelled or completed.
//  SpecialRequests – free text from the guest (may be empty).
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
	ID              uint64            `json:"id"`              // reservations.id
	RestaurantID    uint64            `json:"restaurant_id"`   // reservations.restaurant_id
	UserID          uint64            `json:"user_id"`         // reservations.user_id
	PartySize       int               `json:"party_size"`      // reservations.party_size
	ReservedAt      time.Time         `json:"reserved_at"`     // reservations.reserved_at
	Status          ReservationStatus `json:"status"`          // reservations.status
	SpecialRequests string            `json:"special_requests"` // reservations.special_requests
	CreatedAt       time.Time         `json:"created_at"`      // reservations.created_at
	UpdatedAt       time.Time         `json:"updated_at"`      // reservations.updated_at
}

// ReservationDetail is a reservation joined with the restaurant it belongs
// to, used for listing a user's bookings.
type ReservationDetail struct {
	Reservation
	RestaurantName string `json:"restaurant_name"`
	CuisineType    string `json:"cuisine_type"`
	Address        string `json:"address"`
}
