// Package config provides configuration management for the Calcutta valuation application.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "CALCUTTA"

// DefaultConfigPath is used when no path is given
const DefaultConfigPath = "config/config.yaml"

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	setDefaults(v)

	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return unmarshal(v)
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "calcutta-valuation")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("feed.base_url", "https://feeds.datagolf.com")
	v.SetDefault("feed.api_key", "")
	v.SetDefault("feed.tour", "pga")
	v.SetDefault("feed.probability_markets", []string{"win", "top_5", "top_10", "top_20", "frl"})
	v.SetDefault("feed.best_odds_markets", []string{"win", "top_5", "top_10", "top_20", "frl", "mc", "make_cut"})
	v.SetDefault("feed.metadata_columns", []string{"dg_id", "last_updated"})
	v.SetDefault("feed.drop_columns", []string{"datagolf_baseline", "datagolf_base_history_fit", "dg_id", "last_updated"})
	v.SetDefault("feed.consensus_exclusions", []string{})
	v.SetDefault("feed.unit_scalar_markets", []string{"win", "frl"})
	v.SetDefault("feed.missing_market_fill", 0.0)
	v.SetDefault("feed.timeout_seconds", 30)
	v.SetDefault("feed.max_retries", 0)
	v.SetDefault("feed.rate_limit", 5.0)
	v.SetDefault("feed.cache_ttl_seconds", 60)

	v.SetDefault("matching.threshold", 80)
	v.SetDefault("matching.limit", 2)

	v.SetDefault("workbook.path", "Auction Valuations v3.xlsx")
	v.SetDefault("workbook.probability_sheet", "Probability Table")
	v.SetDefault("workbook.best_odds_sheet", "Best Odds")
	v.SetDefault("workbook.auction_sheet", "Auction Table")

	v.SetDefault("web.port", 8501)
	v.SetDefault("web.password", "")
	v.SetDefault("web.max_upload_mb", 32)

	v.SetDefault("schedule.best_odds_cron", "")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}
