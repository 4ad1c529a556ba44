package config

import (
	"strings"
	"testing"

	"github.com/yourusername/oscar-odds/internal/models"
)

const (
	validConfigPath       = "testdata/valid_config.yaml"
	expansionConfigPath   = "testdata/expansion_config.yaml"
	nonexistentConfigPath = "testdata/nonexistent_config.yaml"
	expectedNoErrorMsg    = "expected no error, got %v"
	oscarOddsName         = "oscar-odds"
	developmentEnv        = "development"
	testAppName           = "test-app"
	testDataToken         = "TEST_DATA_TOKEN"
	expandedSecretValue   = "expanded_secret_value"
)

func loadValid(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	return cfg
}

// TestLoadConfigSuccess tests loading a valid configuration file
func TestLoadConfigSuccess(t *testing.T) {
	cfg := loadValid(t)

	if cfg.App.Name != oscarOddsName {
		t.Errorf("expected app name '%s', got '%s'", oscarOddsName, cfg.App.Name)
	}
	if cfg.App.Environment != developmentEnv {
		t.Errorf("expected environment '%s', got '%s'", developmentEnv, cfg.App.Environment)
	}
	if len(cfg.Pipeline.Stages) != 4 || cfg.Pipeline.Stages[1] != "bafta" {
		t.Errorf("unexpected stages %v", cfg.Pipeline.Stages)
	}
	if cfg.Pipeline.Workers != 2 {
		t.Errorf("expected 2 workers, got %d", cfg.Pipeline.Workers)
	}
	// unset keys fall back to defaults
	if cfg.Model.Train.Iterations != 400 {
		t.Errorf("expected default train iterations, got %d", cfg.Model.Train.Iterations)
	}
	if cfg.Model.Train.HoldoutYears != 1 {
		t.Errorf("expected one held-out year by default, got %d", cfg.Model.Train.HoldoutYears)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf(expectedNoErrorMsg, err)
	}
}

// TestLoadConfigFileNotFound tests handling of missing configuration file
func TestLoadConfigFileNotFound(t *testing.T) {
	if _, err := Load(nonexistentConfigPath); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(nonexistentConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if cfg.Blend.MatchMode != "exact" {
		t.Errorf("expected default match mode, got '%s'", cfg.Blend.MatchMode)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// TestLoadConfigEnvironmentVariables tests environment variable override
func TestLoadConfigEnvironmentVariables(t *testing.T) {
	t.Setenv("OSCAR_ODDS_APP_NAME", testAppName)

	cfg := loadValid(t)
	if cfg.App.Name != testAppName {
		t.Errorf("expected app name '%s' from environment, got '%s'", testAppName, cfg.App.Name)
	}
}

func TestLoadConfigExpandsPlaceholders(t *testing.T) {
	t.Setenv(testDataToken, expandedSecretValue)

	cfg, err := Load(expansionConfigPath)
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if cfg.Data.AuthToken != expandedSecretValue {
		t.Errorf("expected expanded token, got '%s'", cfg.Data.AuthToken)
	}
	// missing variables expand to empty strings
	if cfg.Pipeline.OutputDir != "out" {
		t.Errorf("expected output dir 'out', got '%s'", cfg.Pipeline.OutputDir)
	}
}

func TestBoostTableMergesOverrides(t *testing.T) {
	cfg := loadValid(t)

	table, err := cfg.BoostTable()
	if err != nil {
		t.Fatalf(expectedNoErrorMsg, err)
	}
	if f, _ := table.Factor(models.TierScore); f != 1.9 {
		t.Errorf("expected score override 1.9, got %v", f)
	}
	if f, _ := table.Factor(models.TierSupporting); f != 1.5 {
		t.Errorf("expected default supporting factor 1.5, got %v", f)
	}
}

func TestSentimentBoostDisabled(t *testing.T) {
	cfg := loadValid(t)
	if cfg.SentimentBoost() == nil {
		t.Fatal("expected sentiment pass to be enabled")
	}
	cfg.Blend.Sentiment.Enabled = false
	if cfg.SentimentBoost() != nil {
		t.Error("expected nil sentiment pass when disabled")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "invalid environment",
			mutate: func(c *Config) { c.App.Environment = "invalid" },
			want:   "Environment",
		},
		{
			name:   "invalid log level",
			mutate: func(c *Config) { c.App.LogLevel = "verbose" },
			want:   "LogLevel",
		},
		{
			name:   "unknown match mode",
			mutate: func(c *Config) { c.Blend.MatchMode = "fuzzy" },
			want:   "MatchMode",
		},
		{
			name:   "unknown tier",
			mutate: func(c *Config) { c.Blend.BoostFactors = map[string]float64{"penalty": 1.2} },
			want:   "tier",
		},
		{
			name:   "non-positive factor",
			mutate: func(c *Config) { c.Blend.BoostFactors = map[string]float64{"drama": 0} },
			want:   "BoostFactors",
		},
		{
			name:   "reserved stage name",
			mutate: func(c *Config) { c.Pipeline.Stages = []string{"base"} },
			want:   "stage name",
		},
		{
			name:   "duplicate stage",
			mutate: func(c *Config) { c.Pipeline.Stages = []string{"bafta", "bafta"} },
			want:   "unique",
		},
		{
			name:   "bad cron schedule",
			mutate: func(c *Config) { c.Watch.Schedule = "every tuesday" },
			want:   "cron",
		},
		{
			name:   "inverted sentiment thresholds",
			mutate: func(c *Config) { c.Blend.Sentiment.PositiveThreshold = 0.8 },
			want:   "sentiment",
		},
		{
			name:   "sentiment stage not configured",
			mutate: func(c *Config) { c.Pipeline.SentimentStage = "critics" },
			want:   "sentiment_stage",
		},
		{
			name:   "model without path",
			mutate: func(c *Config) { c.Model.Enabled = true },
			want:   "Path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := loadValid(t)
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning '%s', got: %v", tt.want, err)
			}
		})
	}
}

func TestOverlaySecretsOnConfig(t *testing.T) {
	cfg := loadValid(t)
	cfg.Data.AuthToken = "from-file"

	overlaySecretsOnConfig(cfg, &SecretsOverlay{})
	if cfg.Data.AuthToken != "from-file" {
		t.Errorf("empty secret must not clear token, got '%s'", cfg.Data.AuthToken)
	}

	overlaySecretsOnConfig(cfg, &SecretsOverlay{DataSourceToken: "from-aws"})
	if cfg.Data.AuthToken != "from-aws" {
		t.Errorf("expected overlaid token, got '%s'", cfg.Data.AuthToken)
	}
}

func TestLoadSecretsSkipsWithoutSecretName(t *testing.T) {
	cfg := loadValid(t)
	if err := LoadSecrets(t.Context(), cfg); err != nil {
		t.Errorf(expectedNoErrorMsg, err)
	}
}
