package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/MarkWasfy00/ARC-raiders-guide-sub001/internal/model"
)

// UserRepo provides data access to the users table.  The
// negotiation engine only needs identity resolution; registration
// and login live in the auth handler.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, display_name, password_hash, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a user by primary key, returning ErrNotFound
// when absent.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetByEmail fetches a user by email, returning ErrNotFound when
// absent.  Used by the login flow.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

// Create inserts a new user and populates the generated ID.  The
// email column carries a unique index; duplicate registrations
// surface as a driver error the auth handler maps to a conflict.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, display_name, password_hash, is_active) VALUES (?, ?, ?, ?)`,
		u.Email, u.DisplayName, u.PasswordHash, u.IsActive,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}
