// Package testutil holds helpers shared by package tests. It is only
// imported from _test.go files.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/restaurant-reservation/internal/database"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with the application
// schema applied. The pool is pinned to one connection so the database
// survives for the whole test and write transactions queue behind each
// other the way row locks make them queue on MySQL.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_foreign_keys=on", dbSeq.Add(1))
	db, err := sql.Open("sqlite3", dsn)
	require.NoError(t, err)

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	require.NoError(t, database.Migrate(context.Background(), db, database.SQLite))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// InsertUser adds a user row directly and returns its id.
func InsertUser(t testing.TB, db *sql.DB, email, role string) uint64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO users (email, password_hash, role) VALUES (?,?,?)",
		email, "x", role)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return uint64(id)
}
