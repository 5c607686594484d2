package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tedkulp/cartulary-go/internal/model"
)

// UserRepo is the data-access layer for accounts.
type UserRepo struct {
	pool *pgxpool.Pool
}

// NewUserRepo builds a UserRepo over pool.
func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Get fetches one user by id, without roles (role lookups are a
// separate, rarely-needed join; callers that need Roles call
// GetWithRoles).
func (r *UserRepo) Get(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, is_superuser, is_active, created_at
		  FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsSuperuser, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// GetByEmail fetches one user by email, for login.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, is_superuser, is_active, created_at
		  FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsSuperuser, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return model.User{}, fmt.Errorf("get user by email %s: %w", email, err)
	}
	return u, nil
}

// Insert creates a new user account under a caller-chosen id.
func (r *UserRepo) Insert(ctx context.Context, id, email, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, is_superuser, is_active, created_at)
		VALUES ($1, $2, $3, FALSE, TRUE, now())`, id, email, passwordHash)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", email, err)
	}
	return nil
}
