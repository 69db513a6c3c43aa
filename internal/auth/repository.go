package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peerlink-support/backend/internal/models"
)

const userColumns = `id, email, password_hash, first_name, last_name, role,
		COALESCE(reset_password_code, ''), reset_password_expires_at, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, firstName, lastName string, role models.Role) (*models.User, error) {
	q := `INSERT INTO users (email, password_hash, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, firstName, lastName, string(role)))
}

// GetByID returns a user by ID, or an error when missing.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// FindByID returns a user by ID, or (nil, nil) when missing.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, err := r.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, q, email))
}

// UpdateName updates the user's display name.
func (r *Repository) UpdateName(ctx context.Context, id uuid.UUID, firstName, lastName string) (*models.User, error) {
	q := `UPDATE users SET first_name = $2, last_name = $3, updated_at = now()
		WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, id, firstName, lastName))
}

// SetResetCode stores a password reset code and its expiry.
func (r *Repository) SetResetCode(ctx context.Context, id uuid.UUID, codeHash string, expires time.Time) error {
	const q = `UPDATE users SET reset_password_code = $2, reset_password_expires_at = $3, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, codeHash, expires)
	if err != nil {
		return fmt.Errorf("set reset code: %w", err)
	}
	return nil
}

// ResetPassword replaces the password hash and clears the reset code.
func (r *Repository) ResetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	const q = `UPDATE users SET password_hash = $2, reset_password_code = NULL,
		reset_password_expires_at = NULL, updated_at = now() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, passwordHash)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// Delete removes a user account. Meetings are kept as an audit trail.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM users WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.Role,
		&u.ResetCode, &u.ResetCodeExpires, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
