package share

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	cacheVerKey  = "share:ver"
	cacheListFmt = "share:ls:%s:%s"
	cacheRecFmt  = "share:o:%s:%s"
	cacheTTL     = 30 * time.Second
)

// Cache is a best-effort read cache for listing and fetch-one results.
// Keys embed a version counter that every write operation bumps, so a
// read after Share/Unshare/Write always misses and hits the store.
// Redis being down only costs the hit rate, never correctness.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb, ttl: cacheTTL}
}

func (c *Cache) version(ctx context.Context) string {
	v, err := c.rdb.Get(ctx, cacheVerKey).Result()
	if err != nil {
		return "0"
	}
	return v
}

func (c *Cache) listKey(ctx context.Context, page *Page) string {
	slice := "all"
	if page != nil {
		slice = fmt.Sprintf("%d:%d", page.From, page.Limit)
	}
	return fmt.Sprintf(cacheListFmt, c.version(ctx), slice)
}

func (c *Cache) GetList(ctx context.Context, page *Page) ([]Summary, bool) {
	raw, err := c.rdb.Get(ctx, c.listKey(ctx, page)).Bytes()
	if err != nil {
		return nil, false
	}
	var items []Summary
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	return items, true
}

func (c *Cache) SetList(ctx context.Context, page *Page, items []Summary) {
	raw, err := json.Marshal(items)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.listKey(ctx, page), raw, c.ttl)
}

func (c *Cache) GetRecord(ctx context.Context, uid string) (*Record, bool) {
	key := fmt.Sprintf(cacheRecFmt, c.version(ctx), uid)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false
	}
	return &rec, true
}

// SetRecord caches an existing project. Misses are never cached: an
// absent row must show up immediately once shared.
func (c *Cache) SetRecord(ctx context.Context, uid string, rec *Record) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	key := fmt.Sprintf(cacheRecFmt, c.version(ctx), uid)
	c.rdb.Set(ctx, key, raw, c.ttl)
}

// Invalidate bumps the version counter, orphaning every cached entry.
// Orphans expire on their own TTL.
func (c *Cache) Invalidate(ctx context.Context) {
	c.rdb.Incr(ctx, cacheVerKey)
}
