package users

import (
	"time"
)

// Role is the authorization level of an identity
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an identity known to the comment API.
// Rows are created on login; OAuth exchange itself happens outside this service.
type User struct {
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	ID         string    `json:"id" db:"id"`
	Login      string    `json:"login" db:"login"`
	AvatarURL  string    `json:"avatarUrl" db:"avatar_url"`
	ProfileURL string    `json:"profileUrl" db:"profile_url"`
	Role       Role      `json:"role" db:"role"`
	GitHubID   int64     `json:"githubId" db:"github_id"`
}

// IsAdmin reports whether the user carries the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// CreateUserRequest represents the input for indexing a user after login
type CreateUserRequest struct {
	ID         string `json:"id,omitempty"`
	Login      string `json:"login"`
	AvatarURL  string `json:"avatar_url,omitempty"`
	ProfileURL string `json:"profile_url,omitempty"`
	GitHubID   int64  `json:"github_id,omitempty"`
}

// TimeView is the wire form of a timestamp: epoch milliseconds plus ISO-8601 UTC
type TimeView struct {
	ISO string `json:"iso"`
	TS  int64  `json:"ts"`
}

const isoMillis = "2006-01-02T15:04:05.000Z"

// NewTimeView converts t to its wire form
func NewTimeView(t time.Time) TimeView {
	return TimeView{
		TS:  t.UnixMilli(),
		ISO: t.UTC().Format(isoMillis),
	}
}

// View is the public projection of a user embedded in comment responses
type View struct {
	ID         string   `json:"id"`
	Login      string   `json:"login"`
	AvatarURL  string   `json:"avatar_url"`
	ProfileURL string   `json:"profile_url"`
	Role       Role     `json:"role"`
	CreatedAt  TimeView `json:"created_at"`
	GitHubID   int64    `json:"github_id"`
}

// ToView projects a user for API responses
func ToView(u *User) View {
	if u == nil {
		return View{}
	}
	return View{
		ID:         u.ID,
		GitHubID:   u.GitHubID,
		Login:      u.Login,
		AvatarURL:  u.AvatarURL,
		ProfileURL: u.ProfileURL,
		Role:       u.Role,
		CreatedAt:  NewTimeView(u.CreatedAt),
	}
}
