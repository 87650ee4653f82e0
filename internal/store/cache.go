package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/sellerdash/internal/catalog"
	"github.com/redis/go-redis/v9"
)

const (
	cacheListPrefix    = "catalog:products:"
	cacheVersionPrefix = "catalog:version:"

	// DefaultCacheTTL applies when NewCachedSource is given a zero TTL.
	DefaultCacheTTL = 5 * time.Minute
)

// CachedSource is a read-through Redis cache in front of a catalog.Source.
//
// Each vendor has a version counter; list entries are keyed by version, so
// Invalidate only needs to bump the counter and stale entries age out on
// their TTL. Redis failures are logged and fall through to the source.
type CachedSource struct {
	src catalog.Source
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewCachedSource wraps src with a cache stored in rdb.
func NewCachedSource(src catalog.Source, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedSource{src: src, rdb: rdb, ttl: ttl, log: log}
}

// ListProducts returns the cached list for the vendor, loading it from the
// underlying source on a miss.
func (c *CachedSource) ListProducts(ctx context.Context, vendorID string) ([]catalog.Product, error) {
	version, err := c.version(ctx, vendorID)
	if err != nil {
		c.log.Warn("cache version lookup failed", "vendor_id", vendorID, "error", err)
		return c.src.ListProducts(ctx, vendorID)
	}

	key := listKey(vendorID, version)
	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var products []catalog.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		c.log.Warn("discarding unreadable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("cache read failed", "key", key, "error", err)
	}

	products, err := c.src.ListProducts(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(products); err != nil {
		c.log.Warn("cache encode failed", "vendor_id", vendorID, "error", err)
	} else if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
	return products, nil
}

// Invalidate drops every cached list for the vendor.
func (c *CachedSource) Invalidate(ctx context.Context, vendorID string) error {
	v, err := c.rdb.Incr(ctx, cacheVersionPrefix+vendorID).Result()
	if err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	c.log.Debug("catalog cache invalidated", "vendor_id", vendorID, "version", v)
	return nil
}

func (c *CachedSource) version(ctx context.Context, vendorID string) (int64, error) {
	v, err := c.rdb.Get(ctx, cacheVersionPrefix+vendorID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func listKey(vendorID string, version int64) string {
	return fmt.Sprintf("%s%s:v%d", cacheListPrefix, vendorID, version)
}
