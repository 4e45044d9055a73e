package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/calcutta-valuation/internal/config"
)

// NewOddsSource creates the configured odds feed client with its HTTP client and cache
func NewOddsSource(cfg *config.Config, logger *logrus.Logger) (OddsSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if cfg.Feed.APIKey == "" {
		return nil, fmt.Errorf("feed API key is required")
	}

	httpCfg := DefaultHTTPClientConfig()
	httpCfg.Timeout = time.Duration(cfg.Feed.TimeoutSeconds) * time.Second
	httpCfg.MaxRetries = cfg.Feed.MaxRetries
	if cfg.Feed.RateLimit > 0 {
		httpCfg.RateLimit = cfg.Feed.RateLimit
	}

	return NewDataGolfClient(
		NewRateLimitedHTTPClient(httpCfg, logger),
		NewMarketCSVParser(cfg.Feed.MetadataColumns),
		NewFeedCache(cfg.FeedCacheTTL()),
		cfg.Feed.BaseURL,
		cfg.Feed.APIKey,
		cfg.Feed.Tour,
		logger,
	), nil
}
