package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
)

const userColumns = `id, provider, provider_user_id, email, name, created_at, updated_at`

// UpsertUser creates the user for identity on first sign-in, or refreshes
// its email and name on later sign-ins.
func (s *Store) UpsertUser(ctx context.Context, identity domain.Identity) (domain.User, error) {
	if identity.Provider == "" || identity.ProviderUserID == "" {
		return domain.User{}, fmt.Errorf("identity provider and subject are required")
	}

	now := toMillis(s.now())
	_, err := s.db.ExecContext(ctx, `
INSERT INTO users (id, provider, provider_user_id, email, name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (provider, provider_user_id) DO UPDATE SET
    email = excluded.email,
    name = excluded.name,
    updated_at = excluded.updated_at`,
		s.newID(), identity.Provider, identity.ProviderUserID, identity.Email, identity.Name, now, now,
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_user_id = ?`,
		identity.Provider, identity.ProviderUserID)
	return scanUser(row)
}

// GetUser returns the user with the given id.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// FindUserByEmail returns the most recently updated user with that email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower(?) ORDER BY updated_at DESC LIMIT 1`,
		strings.TrimSpace(email))
	return scanUser(row)
}

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u                    domain.User
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.ID, &u.Provider, &u.ProviderUserID, &u.Email, &u.Name, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}
