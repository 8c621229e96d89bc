package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"Tsuki/internal/core/idempotency"
	"Tsuki/internal/db/clock"
)

type postgresIdempotencyRepo struct {
	db    *sql.DB
	clock *clock.Monotonic
}

// NewIdempotencyRepository creates a new SQL idempotency record store
func NewIdempotencyRepository(db *sql.DB, clk *clock.Monotonic) idempotency.Repository {
	if clk == nil {
		clk = clock.New(nil)
	}
	return &postgresIdempotencyRepo{db: db, clock: clk}
}

// Find returns the live record for the scope, or nil
func (r *postgresIdempotencyRepo) Find(ctx context.Context, route, userID, key string) (*idempotency.Record, error) {
	query := `
		SELECT request_hash, response_status, response_body, created_at, expires_at
		FROM idempotency_keys
		WHERE route = $1 AND user_id = $2 AND idem_key = $3 AND expires_at > $4`

	var (
		record               = idempotency.Record{Route: route, UserID: userID, Key: key}
		body                 string
		createdAt, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx, query, route, userID, key, r.clock.Wall().UnixMicro()).
		Scan(&record.RequestHash, &record.Status, &body, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find idempotency record: %w", err)
	}

	record.Body = []byte(body)
	record.CreatedAt = fromMicros(createdAt)
	record.ExpiresAt = fromMicros(expiresAt)
	return &record, nil
}

// Store upserts the record for its (route, user_id, idem_key) scope
func (r *postgresIdempotencyRepo) Store(ctx context.Context, record *idempotency.Record) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.clock.Wall()
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(idempotency.DefaultTTL)
	}

	query := `
		INSERT INTO idempotency_keys (
			route, user_id, idem_key, request_hash, response_status, response_body, created_at, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (route, user_id, idem_key) DO UPDATE SET
			request_hash = excluded.request_hash,
			response_status = excluded.response_status,
			response_body = excluded.response_body,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`

	_, err := r.db.ExecContext(ctx, query,
		record.Route, record.UserID, record.Key, record.RequestHash, record.Status, string(record.Body),
		record.CreatedAt.UnixMicro(), record.ExpiresAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("failed to store idempotency record: %w", err)
	}
	return nil
}

// Cleanup deletes expired records
func (r *postgresIdempotencyRepo) Cleanup(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= $1`, r.clock.Wall().UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up idempotency records: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count removed idempotency records: %w", err)
	}
	return removed, nil
}
