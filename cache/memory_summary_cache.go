package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/monthwrap/integrations/domain"
)

// MemorySummaryCache implements SummaryCache using ttlcache.
type MemorySummaryCache struct {
	cache *ttlcache.Cache[string, *domain.WrapSummary]
}

// NewMemorySummaryCache creates an in-memory summary cache with
// automatic cleanup. Entries expire after ttl.
func NewMemorySummaryCache(ttl time.Duration) *MemorySummaryCache {
	c := ttlcache.New(
		ttlcache.WithTTL[string, *domain.WrapSummary](ttl),
		ttlcache.WithDisableTouchOnHit[string, *domain.WrapSummary](),
	)

	go c.Start()

	return &MemorySummaryCache{cache: c}
}

func (s *MemorySummaryCache) Get(_ context.Context, userID, monthKey string) (*domain.WrapSummary, bool) {
	item := s.cache.Get(SummaryKey(userID, monthKey))
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (s *MemorySummaryCache) Set(_ context.Context, userID, monthKey string, summary *domain.WrapSummary) error {
	s.cache.Set(SummaryKey(userID, monthKey), summary, ttlcache.DefaultTTL)
	return nil
}

func (s *MemorySummaryCache) Invalidate(_ context.Context, userID, monthKey string) error {
	s.cache.Delete(SummaryKey(userID, monthKey))
	return nil
}

// Stop halts the background cleanup goroutine.
func (s *MemorySummaryCache) Stop() {
	s.cache.Stop()
}
