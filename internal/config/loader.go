// Package config provides configuration management for the oscar-odds pipeline.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "OSCAR_ODDS"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
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

// LoadWithDefaults loads configuration with default values, tolerating a missing file
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
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
	// If file doesn't exist, continue with defaults and environment variables

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
	v.SetDefault("app.name", "oscar-odds")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("data.candidates", "data/candidates.csv")
	v.SetDefault("data.timeout_seconds", 30)
	v.SetDefault("data.retry_max", 3)

	v.SetDefault("blend.match_mode", "exact")
	v.SetDefault("blend.sentiment.enabled", false)
	v.SetDefault("blend.sentiment.very_positive_threshold", 0.5)
	v.SetDefault("blend.sentiment.very_positive_factor", 1.3)
	v.SetDefault("blend.sentiment.positive_threshold", 0.2)
	v.SetDefault("blend.sentiment.positive_factor", 1.15)

	v.SetDefault("pipeline.stages", []string{"golden_globes", "bafta", "guild", "sentiment"})
	v.SetDefault("pipeline.sentiment_stage", "sentiment")
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.output_dir", "output")
	v.SetDefault("pipeline.top_n", 3)

	v.SetDefault("model.version", "v1")
	v.SetDefault("model.cache_ttl_seconds", 3600)
	v.SetDefault("model.cache_max_size", 10000)
	v.SetDefault("model.train.iterations", 400)
	v.SetDefault("model.train.learning_rate", 0.15)
	v.SetDefault("model.train.min_samples", 20)
	v.SetDefault("model.train.l2", 0.001)
	v.SetDefault("model.train.holdout_years", 1)

	v.SetDefault("watch.schedule", "@every 6h")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}
