package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimitRepository implements fixed-window counters keyed by an opaque
// bucket string, backed by a Postgres upsert. On storage errors callers
// fail open; throttling is an admission gate, not a correctness control.
type RateLimitRepository interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error)
	Reset(ctx context.Context, key string) error
}

type rateLimitRepository struct {
	db *pgxpool.Pool
}

func NewRateLimitRepository(db *pgxpool.Pool) RateLimitRepository {
	return &rateLimitRepository{db: db}
}

func (r *rateLimitRepository) Allow(ctx context.Context, key string, max int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	windowStart := time.Now().Truncate(window)

	var count int
	err := r.db.QueryRow(ctx, `
		INSERT INTO rate_limits (key, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (key, window_start)
		DO UPDATE SET count = rate_limits.count + 1
		RETURNING count`,
		key, windowStart,
	).Scan(&count)
	if err != nil {
		return true, fmt.Errorf("rate limit check failed: %w", err)
	}

	return count <= max, nil
}

func (r *rateLimitRepository) Reset(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `DELETE FROM rate_limits WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("rate limit reset failed: %w", err)
	}
	return nil
}
