package datasource

import (
	"fmt"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/calcutta-valuation/internal/models"
)

// FeedCache reuses parsed market tables for a short TTL, so a page reload
// or a Best Odds refresh right after a full refresh does not hit the feed again.
type FeedCache struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewFeedCache creates a feed cache. A zero TTL disables caching.
func NewFeedCache(ttl time.Duration) *FeedCache {
	return &FeedCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

func feedCacheKey(market, oddsFormat string) string {
	return fmt.Sprintf("%s:%s", market, oddsFormat)
}

// Get retrieves a cached table
func (fc *FeedCache) Get(market, oddsFormat string) (*models.MarketTable, bool) {
	if fc == nil || fc.ttl <= 0 {
		return nil, false
	}
	v, found := fc.cache.Get(feedCacheKey(market, oddsFormat))
	if !found {
		return nil, false
	}
	table, ok := v.(*models.MarketTable)
	return table, ok
}

// Set stores a table
func (fc *FeedCache) Set(table *models.MarketTable) {
	if fc == nil || fc.ttl <= 0 || table == nil {
		return
	}
	fc.cache.Set(feedCacheKey(table.Market, table.OddsFormat), table, cache.DefaultExpiration)
}

// Clear drops every cached table
func (fc *FeedCache) Clear() {
	if fc == nil {
		return
	}
	fc.cache.Flush()
}

// Len returns the number of cached tables
func (fc *FeedCache) Len() int {
	if fc == nil {
		return 0
	}
	return fc.cache.ItemCount()
}
