package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/calcutta-valuation/internal/metrics"
	"github.com/yourusername/calcutta-valuation/internal/models"
)

const dataGolfSourceName = "datagolf"

const outrightsPath = "/betting-tools/outrights"

// DataGolfClient implements OddsSource for the DataGolf outrights feed
type DataGolfClient struct {
	httpClient *RateLimitedHTTPClient
	parser     *MarketCSVParser
	cache      *FeedCache
	baseURL    string
	apiKey     string
	tour       string
	logger     *logrus.Entry
}

// NewDataGolfClient creates a new DataGolf feed client
func NewDataGolfClient(httpClient *RateLimitedHTTPClient, parser *MarketCSVParser, feedCache *FeedCache,
	baseURL, apiKey, tour string, logger *logrus.Logger) *DataGolfClient {
	if logger == nil {
		logger = logrus.New()
	}
	return &DataGolfClient{
		httpClient: httpClient,
		parser:     parser,
		cache:      feedCache,
		baseURL:    baseURL,
		apiKey:     apiKey,
		tour:       tour,
		logger:     logger.WithField("source", dataGolfSourceName),
	}
}

// Name returns the data source name
func (c *DataGolfClient) Name() string {
	return dataGolfSourceName
}

// MarketURL builds the outrights URL for a market
func (c *DataGolfClient) MarketURL(market, oddsFormat string) string {
	q := url.Values{}
	q.Set("tour", c.tour)
	q.Set("market", market)
	q.Set("file_format", "csv")
	q.Set("odds_format", oddsFormat)
	q.Set("key", c.apiKey)
	return c.baseURL + outrightsPath + "?" + q.Encode()
}

// FetchMarket retrieves one market's odds. Requests are issued one at a time
// by the caller; this method blocks until the response is parsed.
func (c *DataGolfClient) FetchMarket(ctx context.Context, market, oddsFormat string) (*models.MarketTable, error) {
	if table, ok := c.cache.Get(market, oddsFormat); ok {
		metrics.RecordFeedCacheHit()
		return table, nil
	}

	start := time.Now()
	table, err := c.fetch(ctx, market, oddsFormat)
	outcome := "ok"
	if err != nil {
		outcome = ErrorCode(err)
		if outcome == "" {
			outcome = ErrCodeInvalidData
		}
	}
	metrics.RecordFeedRequest(market, outcome, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	c.cache.Set(table)
	return table, nil
}

func (c *DataGolfClient) fetch(ctx context.Context, market, oddsFormat string) (*models.MarketTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.MarketURL(market, oddsFormat), nil)
	if err != nil {
		return nil, NewDataSourceError(dataGolfSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, NewDataSourceError(dataGolfSourceName, ErrCodeNetworkError, "failed to fetch market "+market, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewDataSourceError(dataGolfSourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(dataGolfSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(dataGolfSourceName, ErrCodeNotFound, "market "+market+" not found", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(dataGolfSourceName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	table, err := c.parser.Parse(resp.Body, market, oddsFormat)
	if err != nil {
		return nil, NewDataSourceError(dataGolfSourceName, ErrCodeInvalidData, "failed to parse market "+market, err)
	}

	c.logger.WithFields(logrus.Fields{
		"market":      market,
		"odds_format": oddsFormat,
		"rows":        len(table.Quotes),
	}).Debug("Fetched market")

	return table, nil
}

// Ping checks that the feed host answers
func (c *DataGolfClient) Ping(ctx context.Context) error {
	resp, err := c.httpClient.Get(ctx, c.baseURL)
	if err != nil {
		return NewDataSourceError(dataGolfSourceName, ErrCodeNetworkError, "feed unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return NewDataSourceError(dataGolfSourceName, ErrCodeServerError, fmt.Sprintf("feed returned status %d", resp.StatusCode), nil)
	}
	return nil
}

// Close drops cached tables and idle feed connections.
func (c *DataGolfClient) Close() error {
	c.logger.WithField("cached_tables", c.cache.Len()).Debug("Closing feed client")
	c.cache.Clear()
	return c.httpClient.Close()
}
