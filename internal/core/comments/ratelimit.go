package comments

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultRateLimitWindow = 10 * time.Minute
	DefaultRateLimitUser   = 10
	DefaultRateLimitIP     = 20
)

// RateLimitPolicy is a trailing-count limit recomputed from persisted rows on every create.
// There are no in-memory counters, so limits survive restarts. Two concurrent creates may
// both observe count = limit-1 and both succeed; the window can be exceeded by one.
type RateLimitPolicy struct {
	Window    time.Duration
	PerUser   int
	PerIPHash int
}

// DefaultRateLimitPolicy is 10 per user and 20 per IP hash per 10 minutes
func DefaultRateLimitPolicy() RateLimitPolicy {
	return RateLimitPolicy{
		Window:    DefaultRateLimitWindow,
		PerUser:   DefaultRateLimitUser,
		PerIPHash: DefaultRateLimitIP,
	}
}

// Check evaluates both windows. Either breach returns a RATE_LIMITED *Error.
func (p RateLimitPolicy) Check(ctx context.Context, repo Repository, userID, ipHash string) error {
	userCount, err := repo.CountRecentByUser(ctx, userID, p.Window)
	if err != nil {
		return fmt.Errorf("failed to count recent comments by user: %w", err)
	}
	if userCount >= p.PerUser {
		return p.breach("user", p.PerUser, "too many comments, please try again later")
	}

	ipCount, err := repo.CountRecentByIPHash(ctx, ipHash, p.Window)
	if err != nil {
		return fmt.Errorf("failed to count recent comments by ip: %w", err)
	}
	if ipCount >= p.PerIPHash {
		return p.breach("ip", p.PerIPHash, "too many comments from this network, please try again later")
	}

	return nil
}

func (p RateLimitPolicy) breach(scope string, limit int, message string) *Error {
	return NewError(CodeRateLimited, message, map[string]any{
		"limit":          limit,
		"window_minutes": int(p.Window / time.Minute),
		"scope":          scope,
	})
}
