// Package config provides configuration management for the oscar-odds pipeline.
package config

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/models"
)

var stageNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("matchmode", validateMatchMode)
	_ = v.RegisterValidation("tier", validateTier)
	_ = v.RegisterValidation("stagename", validateStageName)
	_ = v.RegisterValidation("cronspec", validateCronSpec)

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

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
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

func validateMatchMode(fl validator.FieldLevel) bool {
	_, err := blend.ParseMatchMode(fl.Field().String())
	return err == nil
}

func validateTier(fl validator.FieldLevel) bool {
	_, err := models.ParseBoostTier(fl.Field().String())
	return err == nil
}

// stage names become output directory names
func validateStageName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return stageNamePattern.MatchString(name) && name != "base"
}

func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if _, err := cfg.BoostTable(); err != nil {
		return fmt.Errorf("invalid boost_factors: %w", err)
	}

	if s := cfg.SentimentBoost(); s != nil {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid sentiment settings: %w", err)
		}
	}

	if st := cfg.Pipeline.SentimentStage; st != "" && cfg.Blend.Sentiment.Enabled && !slices.Contains(cfg.Pipeline.Stages, st) {
		return fmt.Errorf("pipeline.sentiment_stage %q is not one of the configured stages", st)
	}

	if cfg.Model.Enabled && cfg.Model.Version == "" {
		return fmt.Errorf("model.version is required when the model is enabled")
	}

	if cfg.Model.CacheMaxSize > 0 && cfg.Model.CacheTTLSeconds == 0 {
		return fmt.Errorf("model.cache_ttl_seconds must be set when cache_max_size is positive")
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
		case "required", "required_if", "required_with":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "min", "max", "unique":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "matchmode":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: exact, substring\n", field)
		case "tier":
			errMsg += fmt.Sprintf("- Field '%s' has unknown boost tier '%v'\n", field, value)
		case "stagename":
			errMsg += fmt.Sprintf("- Field '%s' has invalid stage name '%v'\n", field, value)
		case "cronspec":
			errMsg += fmt.Sprintf("- Field '%s' is not a valid cron schedule: '%v'\n", field, value)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
