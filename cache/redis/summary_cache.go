package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/monthwrap/integrations/cache"
	"github.com/monthwrap/integrations/domain"
)

// SummaryCache implements the SummaryCache interface using Redis, for
// deployments running more than one instance.
type SummaryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSummaryCache creates a new [SummaryCache] instance.
func NewSummaryCache(client *redis.Client, prefix string, ttl time.Duration) *SummaryCache {
	return &SummaryCache{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (r *SummaryCache) redisKey(userID, monthKey string) string {
	return fmt.Sprintf("%s:%s", r.prefix, cache.SummaryKey(userID, monthKey))
}

func (r *SummaryCache) Get(ctx context.Context, userID, monthKey string) (*domain.WrapSummary, bool) {
	raw, err := r.client.Get(ctx, r.redisKey(userID, monthKey)).Bytes()
	if err != nil {
		return nil, false
	}

	var summary domain.WrapSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false
	}
	return &summary, true
}

func (r *SummaryCache) Set(ctx context.Context, userID, monthKey string, summary *domain.WrapSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal wrap summary: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(userID, monthKey), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set wrap summary in Redis: %w", err)
	}
	return nil
}

func (r *SummaryCache) Invalidate(ctx context.Context, userID, monthKey string) error {
	return r.client.Del(ctx, r.redisKey(userID, monthKey)).Err()
}
