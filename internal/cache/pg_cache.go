// Package cache keeps face embeddings in PostgreSQL so repeated crops skip
// the embedding model.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DefaultTTL is used when the cache is built with a non-positive TTL
const DefaultTTL = 24 * time.Hour

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// EmbeddingCache stores embeddings in a pgvector column with a TTL
type EmbeddingCache struct {
	db    DB
	model string
	ttl   time.Duration
	now   func() time.Time
}

// NewEmbeddingCache creates a cache scoped to one embedding model; entries
// written by another model are never returned.
func NewEmbeddingCache(db DB, model string, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &EmbeddingCache{
		db:    db,
		model: model,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get returns the cached embedding for key. A miss or an expired entry
// returns ok=false with no error.
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	query := `
		SELECT embedding, expires_at
		FROM embedding_cache
		WHERE key = $1 AND model = $2
	`

	var embedding *pgvector.Vector
	var expiresAt time.Time

	err := c.db.QueryRow(ctx, query, key, c.model).Scan(&embedding, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get embedding: %w", err)
	}

	if c.now().After(expiresAt) {
		_ = c.Delete(ctx, key)
		return nil, false, nil
	}

	if embedding == nil {
		return nil, false, nil
	}

	floats := embedding.Slice()
	out := make([]float64, len(floats))
	for i, v := range floats {
		out[i] = float64(v)
	}

	return out, true, nil
}

// Set stores embedding under key, replacing any previous entry
func (c *EmbeddingCache) Set(ctx context.Context, key string, embedding []float64) error {
	query := `
		INSERT INTO embedding_cache (key, model, embedding, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET model = EXCLUDED.model,
		    embedding = EXCLUDED.embedding,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	floats := make([]float32, len(embedding))
	for i, v := range embedding {
		floats[i] = float32(v)
	}

	expiresAt := c.now().Add(c.ttl)
	if _, err := c.db.Exec(ctx, query, key, c.model, pgvector.NewVector(floats), expiresAt); err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	return nil
}

// Delete removes a key from cache
func (c *EmbeddingCache) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM embedding_cache WHERE key = $1`
	_, err := c.db.Exec(ctx, query, key)
	return err
}

// CleanupExpired removes all expired entries
func (c *EmbeddingCache) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM embedding_cache WHERE expires_at < NOW()`
	result, err := c.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
