package cache

import (
	"context"
	"fmt"
)

// UsageCounter keeps, per template, a hash of option value to the number of
// product variants holding that value.
type UsageCounter struct {
	redis *RedisClient
}

// NewUsageCounter creates a new UsageCounter.
func NewUsageCounter(redis *RedisClient) *UsageCounter {
	return &UsageCounter{redis: redis}
}

// keyUsage returns the hash key of a template.
// Format: variant:usage:{templateId}
func (c *UsageCounter) keyUsage(templateID string) string {
	return fmt.Sprintf("variant:usage:%s", templateID)
}

// Counts returns the usage of each value of templateID.
func (c *UsageCounter) Counts(ctx context.Context, templateID string, values []string) (map[string]int, error) {
	raw, err := c.redis.HMGet(ctx, c.keyUsage(templateID), values...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(raw))
	for k, v := range raw {
		out[k] = int(v)
	}
	return out, nil
}

// Add adjusts the usage of values by delta.
func (c *UsageCounter) Add(ctx context.Context, templateID string, values []string, delta int) error {
	return c.redis.HIncrBy(ctx, c.keyUsage(templateID), values, int64(delta))
}

// Replace overwrites the usage of templateID with counts.
func (c *UsageCounter) Replace(ctx context.Context, templateID string, counts map[string]int) error {
	values := make(map[string]int64, len(counts))
	for k, v := range counts {
		values[k] = int64(v)
	}
	return c.redis.ReplaceHash(ctx, c.keyUsage(templateID), values)
}
