package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchCacheRepository stores expiring text payloads keyed by a caller-built key.
type SearchCacheRepository struct {
	db  dbtx
	now func() time.Time
}

func NewSearchCacheRepository(pool *pgxpool.Pool) *SearchCacheRepository {
	return &SearchCacheRepository{db: pool, now: time.Now}
}

// Get reports false for missing and expired entries.
func (r *SearchCacheRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var payload string
	err := r.db.QueryRow(ctx,
		`SELECT payload FROM search_cache WHERE cache_key = $1 AND expires_at > $2`,
		key, r.now().UTC(),
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return payload, true, nil
}

func (r *SearchCacheRepository) Set(ctx context.Context, key, payload string, ttl time.Duration) error {
	now := r.now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO search_cache (cache_key, payload, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (cache_key) DO UPDATE
		 SET payload = EXCLUDED.payload,
		     created_at = EXCLUDED.created_at,
		     expires_at = EXCLUDED.expires_at`,
		key, payload, now, now.Add(ttl),
	)
	return err
}

// Prune deletes expired entries and returns how many were removed.
func (r *SearchCacheRepository) Prune(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM search_cache WHERE expires_at <= $1`, r.now().UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
