// Package config provides configuration management for the stock-prophet pipeline.
package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Sources  SourcesConfig  `mapstructure:"sources" validate:"required"`
	Analysis AnalysisConfig `mapstructure:"analysis" validate:"required"`
	Features FeaturesConfig `mapstructure:"features" validate:"required"`
	Labeling LabelingConfig `mapstructure:"labeling" validate:"required"`
	Training TrainingConfig `mapstructure:"training" validate:"required"`
	Output   OutputConfig   `mapstructure:"output" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// SourcesConfig groups the two external data providers.
type SourcesConfig struct {
	Prices   PriceSourceConfig    `mapstructure:"prices" validate:"required"`
	Economic EconomicSourceConfig `mapstructure:"economic" validate:"required"`
}

// PriceSourceConfig configures the daily price history provider.
type PriceSourceConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"required,url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts  int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// EconomicSourceConfig configures the FRED-style macroeconomic series provider.
type EconomicSourceConfig struct {
	BaseURL        string            `mapstructure:"base_url" validate:"required,url"`
	APIKey         string            `mapstructure:"api_key"`
	TimeoutSeconds int               `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts  int               `mapstructure:"retry_attempts" validate:"gte=0"`
	RateLimit      float64           `mapstructure:"rate_limit" validate:"required,gt=0"`
	Series         map[string]string `mapstructure:"series" validate:"required,economicseries"`
}

// AnalysisConfig selects what gets analyzed each run.
type AnalysisConfig struct {
	Tickers       []string          `mapstructure:"tickers" validate:"required,min=1"`
	MarketIndex   string            `mapstructure:"market_index" validate:"required"`
	SectorETFs    map[string]string `mapstructure:"sector_etfs"`
	DefaultSector string            `mapstructure:"default_sector"`
	LookbackYears int               `mapstructure:"lookback_years" validate:"required,gt=0"`
}

// FeaturesConfig holds the rolling-window parameters of the feature builder.
// Defaults are documented in the feature builder tests.
type FeaturesConfig struct {
	ReturnWindows    []int `mapstructure:"return_windows" validate:"required,min=1"`
	MomentumShort    int   `mapstructure:"momentum_short" validate:"required,gt=0"`
	MomentumLong     int   `mapstructure:"momentum_long" validate:"required,gt=0"`
	VolatilityWindow int   `mapstructure:"volatility_window" validate:"required,gt=1"`
	RSIPeriod        int   `mapstructure:"rsi_period" validate:"required,gt=1"`
}

// LabelingConfig holds the deadband labeler parameters.
type LabelingConfig struct {
	Deadband    float64 `mapstructure:"deadband" validate:"required,gt=0,lt=1"`
	HorizonDays int     `mapstructure:"horizon_days" validate:"required,gt=0"`
}

// TrainingConfig holds gradient boosting hyperparameters and guard rails.
type TrainingConfig struct {
	MinRows         int     `mapstructure:"min_rows" validate:"required,gt=0"`
	HoldoutFraction float64 `mapstructure:"holdout_fraction" validate:"required,gt=0,lt=1"`
	Trees           int     `mapstructure:"trees" validate:"required,gt=0"`
	LearningRate    float64 `mapstructure:"learning_rate" validate:"required,gt=0,lte=1"`
	MaxDepth        int     `mapstructure:"max_depth" validate:"required,gt=0"`
	MinSamplesLeaf  int     `mapstructure:"min_samples_leaf" validate:"required,gt=0"`
	SubsampleRatio  float64 `mapstructure:"subsample_ratio" validate:"required,gt=0,lte=1"`
	Seed            int64   `mapstructure:"seed"`
}

// OutputConfig controls the JSON artifact.
type OutputConfig struct {
	Path          string `mapstructure:"path" validate:"required"`
	Precision     int    `mapstructure:"precision" validate:"required,gte=0,lte=12"`
	MaxAgeMinutes int    `mapstructure:"max_age_minutes" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Path    string `mapstructure:"path"`
}

// ScheduleConfig configures the optional local daemon mode.
type ScheduleConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// MaxAge returns the artifact freshness window as a duration.
func (c *Config) MaxAge() time.Duration {
	return time.Duration(c.Output.MaxAgeMinutes) * time.Minute
}

// LargestWindow returns the widest rolling window any feature needs. Tables
// shorter than this cannot produce a feature-complete latest row.
func (c *Config) LargestWindow() int {
	largest := c.Features.VolatilityWindow
	for _, w := range c.Features.ReturnWindows {
		if w > largest {
			largest = w
		}
	}
	if c.Features.MomentumLong > largest {
		largest = c.Features.MomentumLong
	}
	if c.Features.RSIPeriod > largest {
		largest = c.Features.RSIPeriod
	}
	return largest
}

// SectorFor returns the sector ETF symbol joined onto a ticker, falling back
// to the configured default.
func (c *Config) SectorFor(ticker string) string {
	if etf, ok := c.Analysis.SectorETFs[ticker]; ok {
		return etf
	}
	return c.Analysis.DefaultSector
}
