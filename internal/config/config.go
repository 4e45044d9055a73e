// Package config provides configuration management for the Calcutta valuation application.
package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Feed     FeedConfig     `mapstructure:"feed" validate:"required"`
	Matching MatchingConfig `mapstructure:"matching" validate:"required"`
	Workbook WorkbookConfig `mapstructure:"workbook" validate:"required"`
	Web      WebConfig      `mapstructure:"web" validate:"required"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// FeedConfig represents the odds feed configuration
type FeedConfig struct {
	BaseURL             string   `mapstructure:"base_url" validate:"required,url"`
	APIKey              string   `mapstructure:"api_key" validate:"required"`
	Tour                string   `mapstructure:"tour" validate:"required"`
	ProbabilityMarkets  []string `mapstructure:"probability_markets" validate:"required,min=1,markets"`
	BestOddsMarkets     []string `mapstructure:"best_odds_markets" validate:"required,min=1,markets"`
	MetadataColumns     []string `mapstructure:"metadata_columns"`
	DropColumns         []string `mapstructure:"drop_columns"`
	ConsensusExclusions []string `mapstructure:"consensus_exclusions"`
	UnitScalarMarkets   []string `mapstructure:"unit_scalar_markets" validate:"required,min=1"`
	MissingMarketFill   float64  `mapstructure:"missing_market_fill"`
	TimeoutSeconds      int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries          int      `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit           float64  `mapstructure:"rate_limit" validate:"required,gt=0"`
	CacheTTLSeconds     int      `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// MatchingConfig represents fuzzy name matching configuration
type MatchingConfig struct {
	Threshold int `mapstructure:"threshold" validate:"gte=0,lte=100"`
	Limit     int `mapstructure:"limit" validate:"required,gt=0"`
}

// WorkbookConfig represents the workbook artifact configuration
type WorkbookConfig struct {
	Path             string `mapstructure:"path" validate:"required"`
	ProbabilitySheet string `mapstructure:"probability_sheet" validate:"required"`
	BestOddsSheet    string `mapstructure:"best_odds_sheet" validate:"required"`
	AuctionSheet     string `mapstructure:"auction_sheet" validate:"required"`
}

// WebConfig represents the upload/download form server configuration
type WebConfig struct {
	Port        int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Password    string `mapstructure:"password" validate:"required"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" validate:"required,gt=0"`
}

// ScheduleConfig represents the periodic Best Odds refresh
type ScheduleConfig struct {
	BestOddsCron string `mapstructure:"best_odds_cron"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// FeedTimeout returns the per-request feed timeout
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// FeedCacheTTL returns how long feed responses are reused
func (c *Config) FeedCacheTTL() time.Duration {
	return time.Duration(c.Feed.CacheTTLSeconds) * time.Second
}

// MaxUploadBytes returns the multipart upload limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Web.MaxUploadMB) << 20
}
