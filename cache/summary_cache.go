// Package cache holds the monthly-wrap summary caches. Building a
// wrap fans out to three providers, so results are kept for a while
// instead of recomputed per page load.
package cache

import (
	"context"
	"fmt"

	"github.com/monthwrap/integrations/domain"
)

// SummaryCache stores rendered wrap summaries per user and month.
type SummaryCache interface {
	Get(ctx context.Context, userID, monthKey string) (*domain.WrapSummary, bool)
	Set(ctx context.Context, userID, monthKey string, summary *domain.WrapSummary) error
	Invalidate(ctx context.Context, userID, monthKey string) error
}

// SummaryKey builds the cache key for a user's wrap in a given month.
// monthKey is "YYYY-MM".
func SummaryKey(userID, monthKey string) string {
	return fmt.Sprintf("wrap:%s:%s", userID, monthKey)
}
