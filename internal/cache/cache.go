// Package cache provides the persistent query result cache: materialized
// search results keyed by a content-derived query fingerprint, with TTL
// expiry and hit counting.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one cached query result.
type Entry struct {
	QueryHash string          `json:"query_hash"`
	QueryText string          `json:"query_text"`
	QueryType string          `json:"query_type"`
	Results   json.RawMessage `json:"results"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	HitCount  int64           `json:"hit_count"`
}

// ResultCache stores materialized query results. Lookups never error on a
// missing or expired entry; that is simply a miss.
type ResultCache interface {
	// Lookup returns the entry for hash and increments its hit count.
	// An expired or absent entry is a miss (nil, false, nil).
	Lookup(ctx context.Context, hash string) (*Entry, bool, error)
	// Store inserts or replaces the entry (last write wins). A nil ttl means
	// the entry never expires; a zero ttl expires it immediately.
	Store(ctx context.Context, hash, queryText, queryType string, results interface{}, ttl *time.Duration) error
	// Cleanup deletes every entry whose expiry is set and in the past,
	// returning the number deleted.
	Cleanup(ctx context.Context) (int64, error)
	// Count returns the number of entries, expired or not.
	Count(ctx context.Context) (int64, error)
}

// SQLiteCache implements ResultCache on a shared SQLite handle.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache initializes the cache table on db and returns the cache.
// The handle is typically shared with the song store.
func NewSQLiteCache(db *sql.DB) (*SQLiteCache, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		query_hash TEXT PRIMARY KEY,
		query_text TEXT,
		query_type TEXT NOT NULL,
		results TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP,
		hit_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_cache_expires_at ON cache_entries(expires_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

// Lookup returns the cached entry for hash, counting the hit. Expired entries
// are treated as absent but left for Cleanup to delete.
func (c *SQLiteCache) Lookup(ctx context.Context, hash string) (*Entry, bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var entry Entry
	var results string
	var expiresAt sql.NullTime
	err = tx.QueryRowContext(ctx,
		`SELECT query_hash, query_text, query_type, results, created_at, expires_at, hit_count
		 FROM cache_entries WHERE query_hash = ?`, hash,
	).Scan(&entry.QueryHash, &entry.QueryText, &entry.QueryType, &results,
		&entry.CreatedAt, &expiresAt, &entry.HitCount)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		entry.ExpiresAt = &t
		if !time.Now().Before(t) {
			return nil, false, nil
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cache_entries SET hit_count = hit_count + 1 WHERE query_hash = ?`, hash); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	entry.HitCount++
	entry.Results = json.RawMessage(results)
	return &entry, true, nil
}

// Store inserts or replaces the entry for hash.
func (c *SQLiteCache) Store(ctx context.Context, hash, queryText, queryType string, results interface{}, ttl *time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	now := time.Now()
	var expiresAt interface{}
	if ttl != nil {
		expiresAt = now.Add(*ttl)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (query_hash, query_text, query_type, results, created_at, expires_at, hit_count)
		 VALUES (?, ?, ?, ?, ?, ?, 0)
		 ON CONFLICT(query_hash) DO UPDATE SET
			query_text=excluded.query_text, query_type=excluded.query_type,
			results=excluded.results, created_at=excluded.created_at,
			expires_at=excluded.expires_at, hit_count=0`,
		hash, queryText, queryType, string(data), now, expiresAt,
	)
	return err
}

// Cleanup removes expired entries and reports how many were deleted.
func (c *SQLiteCache) Cleanup(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at IS NOT NULL AND expires_at <= ?`, time.Now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count returns the number of cache entries.
func (c *SQLiteCache) Count(ctx context.Context) (int64, error) {
	var count int64
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count)
	return count, err
}
