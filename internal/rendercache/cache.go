// Package rendercache deduplicates identical re-submissions through Redis:
// the key is a digest of the source text and output name, the value is the
// finished output path. Entries expire with the same retention window the
// reaper uses, so a cached path is only trusted if the file still exists.
package rendercache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"

	"clipforge/internal/pkg/logger"
)

const keyPrefix = "clipforge:render:"

// Key derives the cache key for a submission.
func Key(source, outputName string) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte{0})
	h.Write([]byte(outputName))
	return hex.EncodeToString(h.Sum(nil))
}

type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// New creates a cache. A nil client yields a no-op cache.
func New(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.NewDefault()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl, log: log.WithComponent("rendercache")}
}

// Lookup returns the cached output path for key, if any.
func (c *Cache) Lookup(ctx context.Context, key string) (string, bool) {
	if c == nil || c.rdb == nil {
		return "", false
	}
	path, err := c.rdb.Get(ctx, keyPrefix+key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		c.log.Warn("cache lookup failed", "error", err.Error())
		return "", false
	}
	return path, true
}

// Store records the output path for key. Best-effort.
func (c *Cache) Store(ctx context.Context, key, outputPath string) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, outputPath, c.ttl).Err(); err != nil {
		c.log.Warn("cache store failed", "error", err.Error())
	}
}
