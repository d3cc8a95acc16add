package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const classificationKeyPrefix = "classify:"

// ClassificationCache memoises classification results keyed by a digest of
// the submitted text, so identical submissions skip the external model.
// All failures degrade to a miss; the cache never blocks classification.
type ClassificationCache struct {
	redis  *Redis
	ttl    time.Duration
	logger *zap.Logger
}

// NewClassificationCache wraps a Redis connection. A nil connection yields
// a cache that always misses.
func NewClassificationCache(r *Redis, ttl time.Duration, logger *zap.Logger) *ClassificationCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ClassificationCache{redis: r, ttl: ttl, logger: logger}
}

func classificationKey(text string) string {
	digest := sha256.Sum256([]byte(text))
	return classificationKeyPrefix + hex.EncodeToString(digest[:])
}

// Get loads a cached result into out. The second return is false on a miss
// or any cache error.
func (c *ClassificationCache) Get(ctx context.Context, text string, out any) bool {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return false
	}
	raw, err := c.redis.Client.Get(ctx, classificationKey(text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("classification cache read failed", zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Warn("classification cache entry corrupt", zap.Error(err))
		return false
	}
	return true
}

// Set stores a result best effort.
func (c *ClassificationCache) Set(ctx context.Context, text string, value any) {
	if c == nil || c.redis == nil || c.redis.Client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.redis.Client.Set(ctx, classificationKey(text), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("classification cache write failed", zap.Error(err))
	}
}
