package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate creates the schema if it does not exist yet. The statements are
// written once and rendered for the dialect: the auto-increment key, the
// JSON column type, table options and secondary indexes differ.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts := append([]string{}, schema...)
	if d == SQLite {
		stmts = append(stmts, sqliteIndexes...)
	}
	for _, stmt := range stmts {
		q := render(stmt, d)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w\n%s", err, q)
		}
	}
	return nil
}

func render(stmt string, d Dialect) string {
	pk, jsonType, opts := "BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY", "JSON", " ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"
	slotIdx := ",\n\t\tINDEX idx_reservations_slot (restaurant_id, reserved_at, status),\n\t\tINDEX idx_reservations_user (user_id)"
	if d == SQLite {
		pk, jsonType, opts, slotIdx = "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT", "", ""
	}
	r := strings.NewReplacer("{{pk}}", pk, "{{json}}", jsonType, "{{opts}}", opts, "{{reservation_indexes}}", slotIdx)
	return r.Replace(stmt)
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id {{pk}},
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL DEFAULT 'DINER',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	){{opts}}`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id {{pk}},
		user_id BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	){{opts}}`,

	`CREATE TABLE IF NOT EXISTS restaurants (
		id {{pk}},
		name VARCHAR(200) NOT NULL,
		address VARCHAR(500) NOT NULL,
		cuisine_type VARCHAR(100) NOT NULL,
		price_range VARCHAR(4) NOT NULL,
		rating DECIMAL(3,2) NOT NULL DEFAULT 0,
		latitude DECIMAL(9,6) NULL,
		longitude DECIMAL(9,6) NULL,
		capacity INT NOT NULL DEFAULT 50,
		operating_hours {{json}} NOT NULL,
		atmosphere VARCHAR(20) NOT NULL DEFAULT 'casual',
		noise_level VARCHAR(20) NOT NULL DEFAULT 'moderate',
		average_dining_time INT NOT NULL DEFAULT 60,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	){{opts}}`,

	`CREATE TABLE IF NOT EXISTS restaurant_dietary_tags (
		restaurant_id BIGINT UNSIGNED NOT NULL,
		tag VARCHAR(64) NOT NULL,
		PRIMARY KEY (restaurant_id, tag),
		FOREIGN KEY (restaurant_id) REFERENCES restaurants(id) ON DELETE CASCADE
	){{opts}}`,

	`CREATE TABLE IF NOT EXISTS reservations (
		id {{pk}},
		restaurant_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		party_size INT NOT NULL,
		reserved_at DATETIME NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		special_requests TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (restaurant_id) REFERENCES restaurants(id) ON DELETE CASCADE{{reservation_indexes}}
	){{opts}}`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id {{pk}},
		restaurant_id BIGINT UNSIGNED NOT NULL,
		user_id BIGINT UNSIGNED NOT NULL,
		rating TINYINT NOT NULL,
		comment TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE (restaurant_id, user_id),
		FOREIGN KEY (restaurant_id) REFERENCES restaurants(id) ON DELETE CASCADE
	){{opts}}`,
}

// MySQL declares these inline; SQLite needs separate statements.
var sqliteIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_reservations_slot ON reservations (restaurant_id, reserved_at, status)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_user ON reservations (user_id)`,
}
