package cache

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func testCache(t *testing.T) *SQLiteCache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	c, err := NewSQLiteCache(db)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCache_StoreAndLookup(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	ttl := time.Hour
	results := []map[string]interface{}{{"song_id": 1, "similarity": 0.9}}
	if err := c.Store(ctx, "hash1", "probe text", "audio", results, &ttl); err != nil {
		t.Fatal(err)
	}

	entry, ok, err := c.Lookup(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if entry.QueryType != "audio" || entry.QueryText != "probe text" {
		t.Errorf("got %+v", entry)
	}
	if entry.HitCount != 1 {
		t.Errorf("first lookup should count 1 hit, got %d", entry.HitCount)
	}
	if entry.ExpiresAt == nil {
		t.Error("TTL entry should carry an expiry")
	}

	entry, ok, err = c.Lookup(ctx, "hash1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || entry.HitCount != 2 {
		t.Errorf("second lookup should count 2 hits, got ok=%v count=%d", ok, entry.HitCount)
	}
}

func TestCache_MissingHashIsMiss(t *testing.T) {
	c := testCache(t)
	entry, ok, err := c.Lookup(context.Background(), "nope")
	if err != nil {
		t.Fatal(err)
	}
	if ok || entry != nil {
		t.Errorf("absent hash should miss, got ok=%v entry=%v", ok, entry)
	}
}

func TestCache_ZeroTTLExpiresImmediately(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	zero := time.Duration(0)
	if err := c.Store(ctx, "hash-zero", "", "audio", []int{1}, &zero); err != nil {
		t.Fatal(err)
	}
	_, ok, err := c.Lookup(ctx, "hash-zero")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("zero TTL entry should never be returned")
	}

	deleted, err := c.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("cleanup should delete the expired entry, got %d", deleted)
	}
	count, _ := c.Count(ctx)
	if count != 0 {
		t.Errorf("expected empty cache after cleanup, got %d", count)
	}
}

func TestCache_NilTTLNeverExpires(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	if err := c.Store(ctx, "hash-forever", "", "tempo", []int{1}, nil); err != nil {
		t.Fatal(err)
	}
	entry, ok, err := c.Lookup(ctx, "hash-forever")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if entry.ExpiresAt != nil {
		t.Errorf("nil TTL entry should have no expiry, got %v", entry.ExpiresAt)
	}

	deleted, err := c.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 0 {
		t.Errorf("cleanup must not touch unexpiring entries, deleted %d", deleted)
	}
}

func TestCache_StoreReplacesAndResetsHits(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	ttl := time.Hour
	if err := c.Store(ctx, "h", "", "text", []int{1}, &ttl); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Lookup(ctx, "h"); err != nil {
		t.Fatal(err)
	}
	if err := c.Store(ctx, "h", "", "text", []int{1, 2}, &ttl); err != nil {
		t.Fatal(err)
	}
	entry, ok, err := c.Lookup(ctx, "h")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if entry.HitCount != 1 {
		t.Errorf("re-store should reset hit count, got %d", entry.HitCount)
	}
	if string(entry.Results) != "[1,2]" {
		t.Errorf("re-store should replace results, got %s", entry.Results)
	}
	count, _ := c.Count(ctx)
	if count != 1 {
		t.Errorf("re-store must not duplicate, count = %d", count)
	}
}
