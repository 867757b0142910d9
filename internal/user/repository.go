package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"medidiet/internal/apperr"
)

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        *string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public is the account view returned to API callers.
type Public struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Phone *string `json:"phone"`
}

// Public drops the password hash.
func (u *User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

// Repository is a database-backed store of accounts.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

const userColumns = `id, name, email, phone, password_hash, created_at, updated_at`

// Create inserts u. A duplicate email or phone is a Conflict.
func (r *Repository) Create(ctx context.Context, u *User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.Phone, u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
			return apperr.Wrap(apperr.KindConflict, err, msgEmailTaken)
		case strings.Contains(msg, "UNIQUE constraint failed: users.phone"):
			return apperr.Wrap(apperr.KindConflict, err, msgPhoneTaken)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// FindByEmail returns the account with the email, or nil.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, `email = ?`, email)
}

// FindByID returns the account with the id, or nil.
func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, `id = ?`, id)
}

// FindByPhone returns the account whose phone equals phone exactly, or nil.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*User, error) {
	return r.findOne(ctx, `phone = ?`, phone)
}

func (r *Repository) findOne(ctx context.Context, where string, arg any) (*User, error) {
	var u User
	var phone sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Name, &u.Email, &phone, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	return &u, nil
}
