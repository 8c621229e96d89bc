// Package fingerprint produces one-way digests of client attributes (IP address,
// user agent) so abuse tracking never has to persist the raw values.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes salted SHA-256 digests.
// The zero value hashes without a salt, which is only useful in tests.
type Hasher struct {
	salt string
}

// NewHasher creates a hasher bound to the configured salt
func NewHasher(salt string) Hasher {
	return Hasher{salt: salt}
}

// Hash returns the lowercase hex SHA-256 of salt+value (64 characters)
func (h Hasher) Hash(value string) string {
	sum := sha256.Sum256([]byte(h.salt + value))
	return hex.EncodeToString(sum[:])
}

// Pair hashes the client IP and user agent together, the way every write path needs them
func (h Hasher) Pair(ip, userAgent string) (ipHash, userAgentHash string) {
	return h.Hash(ip), h.Hash(userAgent)
}
