package users

import (
	"errors"
	"fmt"
)

// Sentinel errors for common user operations
var (
	// ErrUserNotFound is returned when a user lookup finds no matching record
	ErrUserNotFound = errors.New("user not found")
)

// InvalidLoginError is returned when a login name fails format validation
type InvalidLoginError struct {
	Login  string
	Reason string
}

func (e *InvalidLoginError) Error() string {
	return fmt.Sprintf("invalid login %q: %s", e.Login, e.Reason)
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var invalid *InvalidLoginError
	return errors.As(err, &invalid)
}
