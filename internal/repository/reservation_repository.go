package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/restaurant-reservation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations. A reservation
// occupies one exact-minute slot at one restaurant. All timestamp fields
// are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying sql.DB.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationCols = `res.id, res.restaurant_id, res.user_id, res.party_size, res.reserved_at,
	res.status, res.special_requests, res.created_at, res.updated_at`

func scanReservation(s rowScanner, m *model.Reservation) error {
	return s.Scan(&m.ID, &m.RestaurantID, &m.UserID, &m.PartySize, &m.ReservedAt,
		&m.Status, &m.SpecialRequests, &m.CreatedAt, &m.UpdatedAt)
}

// CreateTx inserts a new reservation within the scope of an existing
// transaction. It populates the generated ID and timestamps on the
// provided record. The caller must commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, m *model.Reservation) error {
	now := time.Now().UTC().Truncate(time.Second)
	m.ReservedAt = m.ReservedAt.UTC().Truncate(time.Minute)
	const q = `INSERT INTO reservations
		(restaurant_id, user_id, party_size, reserved_at, status, special_requests, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, m.RestaurantID, m.UserID, m.PartySize, m.ReservedAt,
		string(m.Status), m.SpecialRequests, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// GetByID fetches a reservation by id.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	var m model.Reservation
	err := scanReservation(r.db.QueryRowContext(ctx,
		"SELECT "+reservationCols+" FROM reservations res WHERE res.id = ?", id), &m)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// BookedPartySize sums the party sizes of the active reservations in one
// slot. It is the read-only half of the availability check.
func (r *ReservationRepo) BookedPartySize(ctx context.Context, restaurantID uint64, slot time.Time) (int, error) {
	return bookedPartySize(ctx, r.db, restaurantID, slot)
}

// BookedPartySizeTx is BookedPartySize inside a transaction; call it after
// RestaurantRepo.LockTx so the answer cannot change before the insert.
func (r *ReservationRepo) BookedPartySizeTx(ctx context.Context, tx *sql.Tx, restaurantID uint64, slot time.Time) (int, error) {
	return bookedPartySize(ctx, tx, restaurantID, slot)
}

func bookedPartySize(ctx context.Context, q querier, restaurantID uint64, slot time.Time) (int, error) {
	args := []any{restaurantID, slot.UTC().Truncate(time.Minute)}
	for _, s := range model.ActiveStatuses {
		args = append(args, string(s))
	}
	var total int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(party_size), 0) FROM reservations
		 WHERE restaurant_id = ? AND reserved_at = ? AND status IN (`+placeholders(len(model.ActiveStatuses))+`)`,
		args...).Scan(&total)
	return total, err
}

// CountInSlot counts every reservation in a slot regardless of status.
// Only the legacy fixed-count availability rule uses it.
func (r *ReservationRepo) CountInSlot(ctx context.Context, restaurantID uint64, slot time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE restaurant_id = ? AND reserved_at = ?",
		restaurantID, slot.UTC().Truncate(time.Minute)).Scan(&n)
	return n, err
}

// ListByUser returns the user's reservations joined with the restaurant,
// newest slot first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+reservationCols+`, rest.name, rest.cuisine_type, rest.address
		 FROM reservations res
		 JOIN restaurants rest ON rest.id = res.restaurant_id
		 WHERE res.user_id = ?
		 ORDER BY res.reserved_at DESC, res.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ReservationDetail, 0)
	for rows.Next() {
		var d model.ReservationDetail
		if err := rows.Scan(&d.ID, &d.RestaurantID, &d.UserID, &d.PartySize, &d.ReservedAt,
			&d.Status, &d.SpecialRequests, &d.CreatedAt, &d.UpdatedAt,
			&d.RestaurantName, &d.CuisineType, &d.Address); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CuisinesForUser returns the distinct cuisines of every restaurant the
// user has ever booked, in any status.
func (r *ReservationRepo) CuisinesForUser(ctx context.Context, userID uint64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT rest.cuisine_type
		 FROM reservations res
		 JOIN restaurants rest ON rest.id = res.restaurant_id
		 WHERE res.user_id = ?
		 ORDER BY rest.cuisine_type`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TransitionStatus moves a reservation to next if its current status allows
// it. The check and the write are one conditional UPDATE, so two admins
// racing on the same row cannot both win. A missing row yields
// ErrReservationNotFound and a disallowed transition yields ErrConflict.
func (r *ReservationRepo) TransitionStatus(ctx context.Context, id uint64, next model.ReservationStatus) (*model.Reservation, error) {
	from := make([]any, 0, 2)
	for _, s := range []model.ReservationStatus{model.StatusPending, model.StatusConfirmed} {
		if s.CanTransitionTo(next) {
			from = append(from, string(s))
		}
	}
	if len(from) == 0 {
		return nil, ErrConflict
	}

	now := time.Now().UTC().Truncate(time.Second)
	args := append([]any{string(next), now, id}, from...)
	res, err := r.db.ExecContext(ctx,
		"UPDATE reservations SET status = ?, updated_at = ? WHERE id = ? AND status IN ("+placeholders(len(from))+")",
		args...)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrConflict
	}
	return current, nil
}
