package memory

import (
	"context"
	"sync"

	"Tsuki/internal/core/users"
	"Tsuki/internal/db/clock"
)

// UserRepository is an in-memory users.Repository.
// It is exported so the comment repository can join authors from it.
type UserRepository struct {
	users map[string]users.User
	clock *clock.Monotonic
	mu    sync.RWMutex
}

// NewUserRepository creates an empty in-memory user repository
func NewUserRepository(clk *clock.Monotonic) *UserRepository {
	if clk == nil {
		clk = clock.New(nil)
	}
	return &UserRepository{
		users: make(map[string]users.User),
		clock: clk,
	}
}

// GetByID retrieves a user by id
func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	u, ok := r.lookup(id)
	if !ok {
		return nil, users.ErrUserNotFound
	}
	return &u, nil
}

// Upsert inserts a user or refreshes profile fields, preserving created_at and role
func (r *UserRepository) Upsert(ctx context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *user
	if existing, ok := r.users[user.ID]; ok {
		stored.CreatedAt = existing.CreatedAt
		stored.Role = existing.Role
	} else {
		stored.CreatedAt = r.clock.Now()
		if !stored.Role.Valid() {
			stored.Role = users.RoleUser
		}
	}
	r.users[user.ID] = stored
	return nil
}

func (r *UserRepository) lookup(id string) (users.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	return u, ok
}
