package users

import "context"

// Repository defines the interface for user data persistence
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)

	// Upsert inserts the user or refreshes its profile fields.
	// CreatedAt and Role of an existing row are preserved.
	Upsert(ctx context.Context, user *User) error
}

// Service defines the interface for user business logic
type Service interface {
	// GetUserByID loads a user and applies the admin allow-list
	GetUserByID(ctx context.Context, id string) (*User, error)

	// IndexUser creates or updates a user after login.
	// Idempotent: the same login always maps to the same id unless one is supplied.
	IndexUser(ctx context.Context, req CreateUserRequest) (*User, error)
}
