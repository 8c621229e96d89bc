package comments

import (
	"errors"
	"fmt"
)

// Code is the machine-readable error class surfaced to API clients
type Code string

const (
	CodeAuthRequired         Code = "AUTH_REQUIRED"
	CodeForbidden            Code = "FORBIDDEN"
	CodeNotFound             Code = "NOT_FOUND"
	CodeValidationFailed     Code = "VALIDATION_FAILED"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeCommentDepthExceeded Code = "COMMENT_DEPTH_EXCEEDED"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// Error is a typed domain failure. Two Errors match under errors.Is when their codes match.
type Error struct {
	Details map[string]any
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError builds a domain error
func NewError(code Code, message string, details map[string]any) *Error {
	return &Error{Code: code, Message: message, Details: details}
}

// NewValidationError builds a VALIDATION_FAILED error with field-level details
func NewValidationError(field, reason, message string) *Error {
	return NewError(CodeValidationFailed, message, map[string]any{
		"field":  field,
		"reason": reason,
	})
}

// Sentinels for errors.Is checks; each matches every error of its code.
var (
	ErrAuthRequired  = &Error{Code: CodeAuthRequired, Message: "login required"}
	ErrForbidden     = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrNotFound      = &Error{Code: CodeNotFound, Message: "comment not found"}
	ErrValidation    = &Error{Code: CodeValidationFailed, Message: "validation failed"}
	ErrRateLimited   = &Error{Code: CodeRateLimited, Message: "too many comments, please try again later"}
	ErrDepthExceeded = &Error{Code: CodeCommentDepthExceeded, Message: "comment depth limit exceeded"}
)

// Repository-level sentinels. The service translates these into domain errors.
var (
	// ErrCommentNotFound indicates the requested comment doesn't exist
	ErrCommentNotFound = errors.New("comment not found")

	// ErrConcurrentModification indicates the comment changed state between read and write
	ErrConcurrentModification = errors.New("comment was modified by another operation")
)

// CodeOf returns the domain code carried by err, or CodeInternal
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	if errors.Is(err, ErrCommentNotFound) {
		return CodeNotFound
	}
	return CodeInternal
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return CodeOf(err) == CodeValidationFailed
}
