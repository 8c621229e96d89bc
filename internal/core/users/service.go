package users

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// GitHub-style login: alphanumeric and single hyphens, no leading hyphen, max 39 chars
var loginRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,38})$`)

type userService struct {
	repo   Repository
	admins AdminAllowList
}

// NewUserService creates a new user service
func NewUserService(repo Repository, admins AdminAllowList) Service {
	return &userService{
		repo:   repo,
		admins: admins,
	}
}

// IDForLogin derives the stable user id for a login name
func IDForLogin(login string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("login:"+strings.ToLower(login))).String()
}

// GetUserByID retrieves a user by id
func (s *userService) GetUserByID(ctx context.Context, id string) (*User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrUserNotFound
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.admins.Apply(user), nil
}

// IndexUser creates or refreshes a user row
func (s *userService) IndexUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	login := strings.TrimSpace(req.Login)
	if err := validateLogin(login); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = IDForLogin(login)
	}

	user := &User{
		ID:         id,
		GitHubID:   req.GitHubID,
		Login:      login,
		AvatarURL:  req.AvatarURL,
		ProfileURL: req.ProfileURL,
		Role:       RoleUser,
	}
	if user.ProfileURL == "" {
		user.ProfileURL = "https://github.com/" + login
	}

	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to index user %s: %w", login, err)
	}

	// Re-read so the caller sees the persisted created_at and role
	return s.GetUserByID(ctx, id)
}

func validateLogin(login string) error {
	if login == "" {
		return &InvalidLoginError{Login: login, Reason: "login is required"}
	}
	if !loginRegex.MatchString(login) {
		return &InvalidLoginError{Login: login, Reason: "must be 1-39 alphanumeric characters or hyphens, not starting with a hyphen"}
	}
	if strings.Contains(login, "--") {
		return &InvalidLoginError{Login: login, Reason: "consecutive hyphens not allowed"}
	}
	return nil
}
