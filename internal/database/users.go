package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/koru-app/koru/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

// CreateUser inserts a confirmed user. The caller supplies the ID and the
// password hash; this is only reached after email confirmation.
func (d *Database) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := d.db.ExecContext(ctx, d.rebind(
		"INSERT INTO users (id, email, password_hash, first_name, last_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.CreatedAt, user.UpdatedAt,
	)
	return err
}

// GetUserByEmail retrieves a user by email
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := d.db.QueryRowContext(ctx, d.rebind(
		"SELECT id, email, password_hash, first_name, last_name, created_at, updated_at FROM users WHERE email = ?"),
		email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByID retrieves a user by ID
func (d *Database) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := d.db.QueryRowContext(ctx, d.rebind(
		"SELECT id, email, password_hash, first_name, last_name, created_at, updated_at FROM users WHERE id = ?"),
		id,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// EmailExists reports whether a confirmed user already owns the email
func (d *Database) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, d.rebind(
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)"),
		email,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
