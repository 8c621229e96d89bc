// Package idempotency caches successful write responses keyed by a client-supplied token,
// so retried requests replay the first response instead of re-executing.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"time"
)

// DefaultTTL is how long a stored response stays replayable
const DefaultTTL = 24 * time.Hour

// HeaderKey is the request header carrying the client token
const HeaderKey = "Idempotency-Key"

// HeaderReplayed marks a response served from the cache
const HeaderReplayed = "Idempotency-Replayed"

var keyRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Record is a cached response scoped to (Route, UserID, Key).
// UserID is empty for anonymous callers.
type Record struct {
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Route       string
	UserID      string
	Key         string
	RequestHash string
	Body        []byte
	Status      int
}

// Expired reports whether the record is past its TTL at now
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Repository persists cached responses. Implementations must be safe for concurrent use.
type Repository interface {
	// Find returns nil, nil when no live record exists
	Find(ctx context.Context, route, userID, key string) (*Record, error)

	// Store inserts or replaces the record for its scope
	Store(ctx context.Context, record *Record) error

	// Cleanup deletes expired records and returns how many were removed
	Cleanup(ctx context.Context) (int64, error)
}

// ValidKey reports whether k is 1-64 characters of [A-Za-z0-9_-]
func ValidKey(k string) bool {
	return keyRegex.MatchString(k)
}

// RequestHash fingerprints a request body so a reused key with a different payload is detectable
func RequestHash(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
