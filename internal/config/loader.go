// Package config provides configuration management for the stock-prophet pipeline.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	v.SetEnvPrefix("STOCK_PROPHET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional
// fields, tolerating a missing config file. Defaults match the values
// documented in the feature-builder and trainer tests.
func LoadWithDefaults(configPath string) (*Config, error) {
	v := viper.New()

	if configPath == "" {
		configPath = "config/config.yaml"
	}

	v.SetConfigType("yaml")
	v.SetEnvPrefix("STOCK_PROPHET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBuffer([]byte(expanded))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If file doesn't exist, continue with defaults and environment variables

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stock-prophet")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("sources.prices.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("sources.prices.timeout_seconds", 30)
	v.SetDefault("sources.prices.retry_attempts", 3)
	v.SetDefault("sources.prices.rate_limit", 5.0)
	v.SetDefault("sources.prices.cache_ttl_seconds", 600)
	v.SetDefault("sources.economic.base_url", "https://api.stlouisfed.org")
	v.SetDefault("sources.economic.timeout_seconds", 30)
	v.SetDefault("sources.economic.retry_attempts", 3)
	v.SetDefault("sources.economic.rate_limit", 2.0)
	v.SetDefault("sources.economic.series", map[string]string{
		"interest_rate": "FEDFUNDS",
		"inflation":     "CPIAUCSL",
		"unemployment":  "UNRATE",
	})

	v.SetDefault("analysis.market_index", "^GSPC")
	v.SetDefault("analysis.default_sector", "SPY")
	v.SetDefault("analysis.lookback_years", 5)

	v.SetDefault("features.return_windows", []int{1, 5, 15, 21})
	v.SetDefault("features.momentum_short", 5)
	v.SetDefault("features.momentum_long", 21)
	v.SetDefault("features.volatility_window", 21)
	v.SetDefault("features.rsi_period", 14)

	v.SetDefault("labeling.deadband", 0.005)
	v.SetDefault("labeling.horizon_days", 1)

	v.SetDefault("training.min_rows", 120)
	v.SetDefault("training.holdout_fraction", 0.2)
	v.SetDefault("training.trees", 120)
	v.SetDefault("training.learning_rate", 0.1)
	v.SetDefault("training.max_depth", 3)
	v.SetDefault("training.min_samples_leaf", 5)
	v.SetDefault("training.subsample_ratio", 0.8)
	v.SetDefault("training.seed", 42)

	v.SetDefault("output.path", "cached_results.json")
	v.SetDefault("output.precision", 6)
	v.SetDefault("output.max_age_minutes", 720)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("schedule.enabled", false)
	v.SetDefault("schedule.cron", "0 22 * * 1-5")
}
