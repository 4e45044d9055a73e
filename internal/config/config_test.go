// Package config provides configuration management for the Calcutta valuation application.
package config

import (
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

const (
	validConfigPath          = "testdata/valid_config.yaml"
	expansionConfigPath      = "testdata/expansion_config.yaml"
	invalidMarketsConfigPath = "testdata/invalid_markets_config.yaml"
	nonexistentConfigPath    = "testdata/nonexistent_config.yaml"
	expectedNoErrorMsg       = "expected no error, got %v"
	appName                  = "calcutta-valuation"
)

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.App.Name != appName {
		t.Errorf("expected app name '%s', got '%s'", appName, cfg.App.Name)
	}
	if cfg.Feed.APIKey != "test-key" {
		t.Errorf("expected api key 'test-key', got '%s'", cfg.Feed.APIKey)
	}
	if len(cfg.Feed.BestOddsMarkets) != 7 {
		t.Errorf("expected 7 best odds markets, got %d", len(cfg.Feed.BestOddsMarkets))
	}
	if cfg.Matching.Threshold != 80 || cfg.Matching.Limit != 2 {
		t.Errorf("unexpected matching config %+v", cfg.Matching)
	}
	// Sheet names were not in the file and come from defaults.
	if cfg.Workbook.ProbabilitySheet != "Probability Table" {
		t.Errorf("expected default probability sheet, got '%s'", cfg.Workbook.ProbabilitySheet)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

// TestLoadWithDefaultsMissingFile falls back to defaults
func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.Feed.BaseURL != "https://feeds.datagolf.com" {
		t.Errorf("unexpected default base url '%s'", cfg.Feed.BaseURL)
	}
	if cfg.Feed.MissingMarketFill != 0 {
		t.Errorf("expected zero fill, got %v", cfg.Feed.MissingMarketFill)
	}
	if cfg.Workbook.Path != "Auction Valuations v3.xlsx" {
		t.Errorf("unexpected default workbook path '%s'", cfg.Workbook.Path)
	}
	if len(cfg.Feed.UnitScalarMarkets) != 2 {
		t.Errorf("expected win and frl unit markets, got %v", cfg.Feed.UnitScalarMarkets)
	}

	// No api key or password is configured.
	if err := Validate(cfg); err == nil {
		t.Error("expected validation error for missing secrets")
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("CALCUTTA_FEED_API_KEY", "env-key")
	t.Setenv("CALCUTTA_MATCHING_THRESHOLD", "90")

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.Feed.APIKey != "env-key" {
		t.Errorf("expected api key from environment, got '%s'", cfg.Feed.APIKey)
	}
	if cfg.Matching.Threshold != 90 {
		t.Errorf("expected threshold 90 from environment, got %d", cfg.Matching.Threshold)
	}
}

// TestLoadConfigExpansion tests ${VAR} placeholders in the YAML file
func TestLoadConfigExpansion(t *testing.T) {
	t.Setenv("TEST_FEED_API_KEY", "expanded_key")
	t.Setenv("TEST_WEB_PASSWORD", "expanded_password")

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	if cfg.Feed.APIKey != "expanded_key" {
		t.Errorf("expected expanded api key, got '%s'", cfg.Feed.APIKey)
	}
	if cfg.Web.Password != "expanded_password" {
		t.Errorf("expected expanded password, got '%s'", cfg.Web.Password)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

// TestValidateUnknownMarket rejects markets the feed does not serve
func TestValidateUnknownMarket(t *testing.T) {
	cfg, err := Load(invalidMarketsConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	err = Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error for unknown market")
	}
	if !strings.Contains(err.Error(), "ProbabilityMarkets") {
		t.Errorf("expected error to name ProbabilityMarkets, got %v", err)
	}
}

// TestValidateCrossField covers rules that span fields
func TestValidateCrossField(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing top_20",
			mutate:  func(c *Config) { c.Feed.ProbabilityMarkets = []string{"win", "top_5", "top_10", "frl"} },
			wantErr: "top_20",
		},
		{
			name:    "bad cron",
			mutate:  func(c *Config) { c.Schedule.BestOddsCron = "every minute" },
			wantErr: "best_odds_cron",
		},
		{
			name: "short production password",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.Web.Password = "short"
			},
			wantErr: "password",
		},
		{
			name:   "valid cron",
			mutate: func(c *Config) { c.Schedule.BestOddsCron = "*/15 * * * *" },
		},
		{
			name:   "valid every",
			mutate: func(c *Config) { c.Schedule.BestOddsCron = "@every 10m" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(validConfigPath)
			if err != nil {
				t.Fatalf(expectedNoErrorMsg, err)
			}
			tt.mutate(cfg)

			err = Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf(expectedNoErrorMsg, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestSecretsOverlay tests applying AWS secrets to the configuration
func TestSecretsOverlay(t *testing.T) {
	secrets, err := parseSecretData(&secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"data_golf_api_key":"from-aws","password":"aws-password"}`),
	})
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}

	cfg := &Config{}
	cfg.Feed.APIKey = "file-key"
	overlaySecretsOnConfig(cfg, secrets)

	if cfg.Feed.APIKey != "from-aws" {
		t.Errorf("expected api key from secrets, got '%s'", cfg.Feed.APIKey)
	}
	if cfg.Web.Password != "aws-password" {
		t.Errorf("expected password from secrets, got '%s'", cfg.Web.Password)
	}

	if _, err := parseSecretData(&secretsmanager.GetSecretValueOutput{}); err == nil {
		t.Error("expected error for empty secret")
	}
}
