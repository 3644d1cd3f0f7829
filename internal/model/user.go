package model

import "time"

// Roles carried in the JWT "role" claim.
const (
	RoleDiner = "DINER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the
// `users` table. The core only ever holds a reference to a user by ID;
// credentials stay inside the auth handler and repositories.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – DINER or ADMIN.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
