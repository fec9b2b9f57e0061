package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/growthfarm/market-api/internal/market"
	"github.com/growthfarm/market-api/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Insert(ctx context.Context, u *User) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO users(username, email, password_hash, full_name, phone, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Role, u.IsActive,
	).Scan(&u.ID, &u.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return fmt.Errorf("%w: username or email already registered", market.ErrInvalidRequest)
	}
	return postgres.StorageError(err)
}

func (r *Repo) ByLogin(ctx context.Context, login string) (User, error) {
	var u User
	err := r.DB.QueryRow(ctx, `
		SELECT id, username, email, password_hash, full_name, phone, role, is_active, created_at
		FROM users WHERE username = $1 OR email = $2
		ORDER BY (username = $1) DESC LIMIT 1`, login, strings.ToLower(login),
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %q", market.ErrNotFound, login)
	}
	return u, postgres.StorageError(err)
}
