// Package config provides configuration management for the stock-prophet pipeline.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// requiredEconomicSeries are the macro series every run must resolve; the
// artifact's economic snapshot is built from exactly these keys.
var requiredEconomicSeries = []string{"interest_rate", "inflation", "unemployment"}

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("economicseries", validateEconomicSeries)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateEconomicSeries requires a series ID for each macro variable the
// artifact snapshot exposes.
func validateEconomicSeries(fl validator.FieldLevel) bool {
	series, ok := fl.Field().Interface().(map[string]string)
	if !ok {
		return false
	}
	for _, key := range requiredEconomicSeries {
		if series[key] == "" {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Features.MomentumShort >= cfg.Features.MomentumLong {
		return fmt.Errorf("features momentum_short must be smaller than momentum_long")
	}

	// The holdout must leave enough rows on both sides of the split.
	holdout := int(float64(cfg.Training.MinRows) * cfg.Training.HoldoutFraction)
	if holdout < 1 {
		return fmt.Errorf("training holdout_fraction leaves no holdout rows at min_rows")
	}

	if cfg.Labeling.HorizonDays >= cfg.Training.MinRows {
		return fmt.Errorf("labeling horizon_days must be smaller than training min_rows")
	}

	if cfg.IsProduction() && cfg.Sources.Economic.APIKey == "" {
		return fmt.Errorf("production environment requires an economic data API key")
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
		case "economicseries":
			errMsg += fmt.Sprintf("- Field '%s' must map interest_rate, inflation and unemployment to series IDs\n", field)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
