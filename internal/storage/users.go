package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gastos/internal/core"
)

// StoredUser is a user row including its password hash. Only the
// identity layer should ever see the hash.
type StoredUser struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
}

// CreateUser inserts a login account. A duplicate username surfaces as
// core.ErrUsernameTaken rather than a raw constraint error.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return core.ErrUsernameTaken
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UserByUsername fetches an account by name, core.ErrNotFound when the
// name is unknown.
func (r *Repository) UserByUsername(ctx context.Context, username string) (StoredUser, error) {
	var u StoredUser
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, role FROM users WHERE username = ?`,
		username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredUser{}, core.ErrNotFound
	}
	if err != nil {
		return StoredUser{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CountUsers reports how many accounts exist, used to decide whether the
// seed accounts are needed.
func (r *Repository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}
