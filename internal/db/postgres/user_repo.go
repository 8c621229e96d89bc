package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Tsuki/internal/core/users"
	"Tsuki/internal/db/clock"
)

type postgresUserRepo struct {
	db    *sql.DB
	clock *clock.Monotonic
}

// NewUserRepository creates a new SQL user repository
func NewUserRepository(db *sql.DB, clk *clock.Monotonic) users.Repository {
	if clk == nil {
		clk = clock.New(nil)
	}
	return &postgresUserRepo{db: db, clock: clk}
}

// GetByID retrieves a user by id
func (r *postgresUserRepo) GetByID(ctx context.Context, id string) (*users.User, error) {
	query := `
		SELECT id, github_id, login, avatar_url, profile_url, role, created_at
		FROM users WHERE id = $1`

	var (
		user      users.User
		role      string
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.GitHubID, &user.Login, &user.AvatarURL, &user.ProfileURL, &role, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, users.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	user.Role = users.Role(role)
	user.CreatedAt = fromMicros(createdAt)
	return &user, nil
}

// Upsert inserts a user or refreshes profile fields.
// created_at and role of an existing row are left unchanged.
func (r *postgresUserRepo) Upsert(ctx context.Context, user *users.User) error {
	now := r.clock.Now()
	role := user.Role
	if !role.Valid() {
		role = users.RoleUser
	}

	query := `
		INSERT INTO users (id, github_id, login, avatar_url, profile_url, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (id) DO UPDATE SET
			github_id = excluded.github_id,
			login = excluded.login,
			avatar_url = excluded.avatar_url,
			profile_url = excluded.profile_url,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.GitHubID, user.Login, user.AvatarURL, user.ProfileURL, string(role), now.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
