// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of the current state of the row, such as confirming a reservation that
// was already cancelled. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

var (
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReviewNotFound      = errors.New("review not found")
	ErrUserNotFound        = errors.New("user not found")
)

// ErrInvalidOrder is returned by Search for an order key outside the
// whitelist.
var ErrInvalidOrder = errors.New("invalid order key")

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers can be
// shared between the plain and the ...Tx variants.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isDuplicate reports a unique-key violation from MySQL (1062) or SQLite.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// escapeLike escapes LIKE wildcards for use with ESCAPE '!'.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}

// containsPattern builds a case-insensitive substring pattern for
// LOWER(col) LIKE ? ESCAPE '!'.
func containsPattern(s string) string {
	return "%" + escapeLike(strings.ToLower(s)) + "%"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
