package reputation

import (
	"context"
	"encoding/json"
	"time"

	"nuvex/core"
	"nuvex/metrics"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache holds reputation findings per indicator across two tiers: an
// in-process expiring LRU and, when configured, a shared Redis tier so
// multiple instances do not re-query the same indicators. Redis failures
// degrade silently to the memory tier.
type Cache struct {
	lru    *expirable.LRU[string, []core.ReputationFinding]
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewCache creates a reputation cache. rdb may be nil to run memory-only.
func NewCache(size int, ttl time.Duration, rdb *redis.Client, logger *zap.SugaredLogger) *Cache {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if size <= 0 {
		size = 4096
	}
	return &Cache{
		lru:    expirable.NewLRU[string, []core.ReputationFinding](size, nil, ttl),
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

const redisKeyPrefix = "nuvex:reputation:"

// Get returns the cached findings for an indicator.
func (c *Cache) Get(ctx context.Context, indicator string) ([]core.ReputationFinding, bool) {
	if findings, ok := c.lru.Get(indicator); ok {
		metrics.CacheHits.WithLabelValues("memory").Inc()
		return findings, true
	}
	metrics.CacheMisses.WithLabelValues("memory").Inc()

	if c.rdb == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, redisKeyPrefix+indicator).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warnw("Redis reputation cache read failed", "indicator", indicator, "error", err)
		}
		metrics.CacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}

	var findings []core.ReputationFinding
	if err := json.Unmarshal([]byte(data), &findings); err != nil {
		c.logger.Warnw("Failed to decode cached reputation findings", "indicator", indicator, "error", err)
		return nil, false
	}

	metrics.CacheHits.WithLabelValues("redis").Inc()
	// Promote to the memory tier for subsequent lookups.
	c.lru.Add(indicator, findings)
	return findings, true
}

// Set stores findings for an indicator in both tiers.
func (c *Cache) Set(ctx context.Context, indicator string, findings []core.ReputationFinding) {
	c.lru.Add(indicator, findings)

	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(findings)
	if err != nil {
		c.logger.Warnw("Failed to encode reputation findings for cache", "indicator", indicator, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+indicator, data, c.ttl).Err(); err != nil {
		c.logger.Warnw("Redis reputation cache write failed", "indicator", indicator, "error", err)
	}
}
