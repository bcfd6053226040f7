package model

import "time"

// User represents an application user record as stored in the
// `users` table. Each field corresponds to a column in the
// database. The json tags are omitted here because these structs
// are primarily used internally by the repository layer; handlers
// define separate response types with appropriate JSON tags.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  DisplayName  – name shown to other traders.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	DisplayName  string    // users.display_name
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
