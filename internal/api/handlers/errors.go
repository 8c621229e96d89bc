// Package handlers holds the JSON envelope shared by every endpoint.
// Per-resource handlers live in subpackages.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"Tsuki/internal/core/comments"
	"Tsuki/internal/core/users"
)

// MaxBodyBytes caps JSON request bodies
const MaxBodyBytes = 64 * 1024

type successEnvelope struct {
	Data any  `json:"data"`
	OK   bool `json:"ok"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
	OK    bool      `json:"ok"`
}

type errorBody struct {
	Details   map[string]any `json:"details,omitempty"`
	Code      comments.Code  `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
}

// StatusFor maps a domain error code to its HTTP status
func StatusFor(code comments.Code) int {
	switch code {
	case comments.CodeAuthRequired:
		return http.StatusUnauthorized
	case comments.CodeForbidden:
		return http.StatusForbidden
	case comments.CodeNotFound:
		return http.StatusNotFound
	case comments.CodeValidationFailed:
		return http.StatusBadRequest
	case comments.CodeRateLimited:
		return http.StatusTooManyRequests
	case comments.CodeCommentDepthExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes a success envelope
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(successEnvelope{OK: true, Data: data}); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// WriteError maps err onto the error envelope.
// Unexpected errors are logged with the request id and reported generically.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := chiMiddleware.GetReqID(r.Context())

	body := errorBody{Code: comments.CodeOf(err), RequestID: requestID}

	var domainErr *comments.Error
	var loginErr *users.InvalidLoginError
	switch {
	case errors.As(err, &domainErr):
		body.Message = domainErr.Message
		body.Details = domainErr.Details
	case errors.As(err, &loginErr):
		body.Code = comments.CodeValidationFailed
		body.Message = loginErr.Error()
		body.Details = map[string]any{"field": "login", "reason": "INVALID"}
	case body.Code == comments.CodeNotFound:
		body.Message = "comment not found"
	}

	if body.Code == comments.CodeInternal {
		slog.Error("request failed",
			slog.String("request_id", requestID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		body.Message = "An internal error occurred"
		body.Details = nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(body.Code))
	if encErr := json.NewEncoder(w).Encode(errorEnvelope{Error: body}); encErr != nil {
		slog.Warn("failed to encode error response", slog.String("error", encErr.Error()))
	}
}

// DecodeJSON reads a size-capped JSON body into dst
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return comments.NewValidationError("body", "TOO_LARGE", "request body too large")
		}
		return comments.NewValidationError("body", "INVALID_JSON", "invalid request body")
	}
	return nil
}

// ParseLimit reads the limit query parameter. Absent means zero, which services
// treat as the default. Explicit values below 1 become 1; the service clamps the top.
func ParseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, comments.NewValidationError("limit", "INVALID", "limit must be an integer")
	}
	if limit < 1 {
		limit = 1
	}
	return limit, nil
}

// OptionalQuery returns a pointer to a non-empty query value
func OptionalQuery(r *http.Request, name string) *string {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}
