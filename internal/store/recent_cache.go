// internal/store/recent_cache.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"loan-risk-service/internal/common/logger"
	"loan-risk-service/internal/common/metrics"
	"loan-risk-service/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	recentKeyPrefix = "loans:recent:"
	recentGenKey    = recentKeyPrefix + "gen"
)

// RecordStore is what the cache sits in front of.
type RecordStore interface {
	Save(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error)
	Recent(ctx context.Context, limit int) ([]*models.ApplicationRecord, error)
}

// CachedStore serves the recent-applications listing from Redis with a short
// TTL. Redis is never required: any cache error falls through to the
// underlying store.
//
// Listings are keyed by a generation counter that every Save increments. A
// reader takes the generation before it reads the store, so a listing read
// before an insert can only be cached under the generation that insert
// retired.
type CachedStore struct {
	store  RecordStore
	redis  redis.UniversalClient
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(store RecordStore, rdb redis.UniversalClient, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		store:  store,
		redis:  rdb,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "recent-cache"}),
	}
}

func recentKey(gen int64, limit int) string {
	return fmt.Sprintf("%s%d:%d", recentKeyPrefix, gen, limit)
}

func (c *CachedStore) generation(ctx context.Context) (int64, error) {
	gen, err := c.redis.Get(ctx, recentGenKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *CachedStore) Save(ctx context.Context, record *models.ApplicationRecord) (*models.ApplicationRecord, error) {
	saved, err := c.store.Save(ctx, record)
	if err != nil {
		return nil, err
	}
	if err := c.redis.Incr(ctx, recentGenKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate recent applications cache", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return saved, nil
}

func (c *CachedStore) Recent(ctx context.Context, limit int) ([]*models.ApplicationRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("Recent applications cache unavailable", map[string]interface{}{"error": err.Error()})
		metrics.RecentCacheLookups.WithLabelValues("error").Inc()
		return c.store.Recent(ctx, limit)
	}
	key := recentKey(gen, limit)

	cached, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []*models.ApplicationRecord
		if jsonErr := json.Unmarshal(cached, &records); jsonErr == nil {
			metrics.RecentCacheLookups.WithLabelValues("hit").Inc()
			return records, nil
		}
		c.logger.Warn("Discarding undecodable recent applications cache entry", map[string]interface{}{"key": key})
		metrics.RecentCacheLookups.WithLabelValues("miss").Inc()
	case err == redis.Nil:
		metrics.RecentCacheLookups.WithLabelValues("miss").Inc()
	default:
		c.logger.Warn("Recent applications cache unavailable", map[string]interface{}{"error": err.Error()})
		metrics.RecentCacheLookups.WithLabelValues("error").Inc()
	}

	records, err := c.store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(records); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Debug("Failed to populate recent applications cache", map[string]interface{}{"error": err.Error()})
		}
	}
	return records, nil
}
