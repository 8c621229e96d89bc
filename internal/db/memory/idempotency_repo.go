package memory

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"Tsuki/internal/core/idempotency"
)

// DefaultIdempotencyCapacity bounds the in-memory response cache
const DefaultIdempotencyCapacity = 10000

type idempotencyRepo struct {
	cache *lru.Cache[string, idempotency.Record]
	now   func() time.Time
}

// NewIdempotencyRepository creates a bounded in-memory response cache.
// The least recently used entry is evicted at capacity; expiry follows each record's ExpiresAt.
func NewIdempotencyRepository(capacity int, now func() time.Time) (idempotency.Repository, error) {
	if capacity <= 0 {
		capacity = DefaultIdempotencyCapacity
	}
	if now == nil {
		now = time.Now
	}
	cache, err := lru.New[string, idempotency.Record](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create idempotency cache: %w", err)
	}
	return &idempotencyRepo{cache: cache, now: now}, nil
}

func scopeKey(route, userID, key string) string {
	return route + "\x00" + userID + "\x00" + key
}

func (r *idempotencyRepo) Find(ctx context.Context, route, userID, key string) (*idempotency.Record, error) {
	k := scopeKey(route, userID, key)
	record, ok := r.cache.Get(k)
	if !ok {
		return nil, nil
	}
	if record.Expired(r.now()) {
		r.cache.Remove(k)
		return nil, nil
	}
	return &record, nil
}

func (r *idempotencyRepo) Store(ctx context.Context, record *idempotency.Record) error {
	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	if stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = stored.CreatedAt.Add(idempotency.DefaultTTL)
	}
	stored.Body = append([]byte(nil), record.Body...)
	r.cache.Add(scopeKey(stored.Route, stored.UserID, stored.Key), stored)
	return nil
}

func (r *idempotencyRepo) Cleanup(ctx context.Context) (int64, error) {
	now := r.now()
	var removed int64
	for _, k := range r.cache.Keys() {
		record, ok := r.cache.Peek(k)
		if ok && record.Expired(now) && r.cache.Remove(k) {
			removed++
		}
	}
	return removed, nil
}
