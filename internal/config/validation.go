// Package config provides configuration management for the Calcutta valuation application.
package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var knownMarkets = map[string]bool{
	"win":      true,
	"top_5":    true,
	"top_10":   true,
	"top_20":   true,
	"frl":      true,
	"mc":       true,
	"make_cut": true,
}

// distributionMarkets must all be fetched for the finish-position breakdown.
var distributionMarkets = []string{"win", "top_5", "top_10", "top_20"}

var cronFieldPattern = regexp.MustCompile(`^(@every \S+|@\w+|(\S+\s+){4}\S+)$`)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("markets", validateMarkets)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateMarkets(fl validator.FieldLevel) bool {
	markets, ok := fl.Field().Interface().([]string)
	if !ok || len(markets) == 0 {
		return false
	}
	for _, market := range markets {
		if !knownMarkets[market] {
			return false
		}
	}
	return true
}

func validateCrossField(cfg *Config) error {
	requested := make(map[string]bool, len(cfg.Feed.ProbabilityMarkets))
	for _, m := range cfg.Feed.ProbabilityMarkets {
		requested[m] = true
	}
	for _, m := range distributionMarkets {
		if !requested[m] {
			return fmt.Errorf("probability_markets must include %q", m)
		}
	}

	for _, m := range cfg.Feed.UnitScalarMarkets {
		if !knownMarkets[m] {
			return fmt.Errorf("unit_scalar_markets contains unknown market %q", m)
		}
	}

	if cfg.Schedule.BestOddsCron != "" && !cronFieldPattern.MatchString(cfg.Schedule.BestOddsCron) {
		return fmt.Errorf("schedule.best_odds_cron %q is not a cron expression", cfg.Schedule.BestOddsCron)
	}

	if cfg.IsProduction() && len(cfg.Web.Password) < 8 {
		return fmt.Errorf("production environment requires a web password of at least 8 characters")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "markets":
			errMsg += fmt.Sprintf("- Field '%s' must only contain: win, top_5, top_10, top_20, frl, mc, make_cut\n", field)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
