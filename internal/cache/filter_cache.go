package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/GTDGit/gtd_catalog/internal/models"
)

// filterIndexEntry is a cached filter index.
type filterIndexEntry struct {
	Index    *models.FilterIndex `json:"index"`
	CachedAt time.Time           `json:"cachedAt"`
}

// FilterCache caches built filter indexes.
type FilterCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewFilterCache creates a new FilterCache.
func NewFilterCache(redis *RedisClient, ttl time.Duration) *FilterCache {
	return &FilterCache{
		redis: redis,
		ttl:   ttl,
	}
}

// keyIndex returns the Redis key of one filter index.
// Format: filters:index:{scope}:{productType}:{category}
func (c *FilterCache) keyIndex(scope models.Scope, productType, category string) string {
	return fmt.Sprintf("filters:index:%s:%s:%s", scope, productType, category)
}

// Get returns the cached index, or ok=false on a miss.
func (c *FilterCache) Get(ctx context.Context, scope models.Scope, productType, category string) (*models.FilterIndex, bool, error) {
	raw, err := c.redis.Get(ctx, c.keyIndex(scope, productType, category))
	if err != nil {
		if IsMiss(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry filterIndexEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal filter index: %w", err)
	}
	return entry.Index, true, nil
}

// Set stores index for the given scope and filters.
func (c *FilterCache) Set(ctx context.Context, scope models.Scope, productType, category string, index *models.FilterIndex) error {
	raw, err := json.Marshal(filterIndexEntry{Index: index, CachedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal filter index: %w", err)
	}
	return c.redis.Set(ctx, c.keyIndex(scope, productType, category), string(raw), c.ttl)
}

// InvalidateAll drops every cached index. Usage counts change with each
// product write, so every scope is affected.
func (c *FilterCache) InvalidateAll(ctx context.Context) error {
	_, err := c.redis.DeleteByPattern(ctx, "filters:index:*")
	return err
}
