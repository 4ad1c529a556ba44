// Package config provides configuration management for the oscar-odds pipeline.
package config

import (
	"time"

	"github.com/yourusername/oscar-odds/internal/blend"
	"github.com/yourusername/oscar-odds/internal/ml"
	"github.com/yourusername/oscar-odds/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Data     DataConfig     `mapstructure:"data" validate:"required"`
	Blend    BlendConfig    `mapstructure:"blend" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	Model    ModelConfig    `mapstructure:"model"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DataConfig locates the input data. Paths may be local files or http(s) URLs.
type DataConfig struct {
	Candidates     string `mapstructure:"candidates" validate:"required"`
	Precursors     string `mapstructure:"precursors"`
	Sentiment      string `mapstructure:"sentiment"`
	History        string `mapstructure:"history"`
	AuthToken      string `mapstructure:"auth_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryMax       int    `mapstructure:"retry_max" validate:"gte=0,lte=10"`

	// SentimentCategories maps award categories to sentiment table categories
	SentimentCategories map[string]string `mapstructure:"sentiment_categories"`
}

// BlendConfig represents boost factors and matching rules
type BlendConfig struct {
	BoostFactors    map[string]float64 `mapstructure:"boost_factors" validate:"dive,keys,tier,endkeys,gt=0"`
	MatchMode       string             `mapstructure:"match_mode" validate:"required,matchmode"`
	AllowMultiMatch bool               `mapstructure:"allow_multi_match"`
	MatchFilm       bool               `mapstructure:"match_film"`
	Sentiment       SentimentConfig    `mapstructure:"sentiment"`
}

// SentimentConfig represents the optional sentiment pass
type SentimentConfig struct {
	Enabled               bool    `mapstructure:"enabled"`
	VeryPositiveThreshold float64 `mapstructure:"very_positive_threshold" validate:"gte=-1,lte=1"`
	VeryPositiveFactor    float64 `mapstructure:"very_positive_factor" validate:"gte=0"`
	PositiveThreshold     float64 `mapstructure:"positive_threshold" validate:"gte=-1,lte=1"`
	PositiveFactor        float64 `mapstructure:"positive_factor" validate:"gte=0"`
}

// PipelineConfig represents stage ordering and output
type PipelineConfig struct {
	Stages         []string `mapstructure:"stages" validate:"required,min=1,unique,dive,required,stagename"`
	SentimentStage string   `mapstructure:"sentiment_stage"`
	Workers        int      `mapstructure:"workers" validate:"required,gt=0,lte=64"`
	OutputDir      string   `mapstructure:"output_dir" validate:"required"`
	WriteWorkbook  bool     `mapstructure:"write_workbook"`
	TopN           int      `mapstructure:"top_n" validate:"gte=0"`
}

// ModelConfig represents the optional base-probability model
type ModelConfig struct {
	Enabled         bool           `mapstructure:"enabled"`
	Path            string         `mapstructure:"path" validate:"required_if=Enabled true"`
	Version         string         `mapstructure:"version"`
	CacheTTLSeconds int            `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
	CacheMaxSize    int            `mapstructure:"cache_max_size" validate:"gte=0"`
	Train           ml.TrainConfig `mapstructure:"train"`
}

// MetricsConfig represents metrics export configuration
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path"`
	ListenAddr   string `mapstructure:"listen_addr"`
}

// WatchConfig represents the scheduled re-run configuration
type WatchConfig struct {
	Schedule string `mapstructure:"schedule" validate:"omitempty,cronspec"`
}

// SecretsConfig locates the optional AWS Secrets Manager overlay
type SecretsConfig struct {
	Region     string `mapstructure:"region" validate:"required_with=SecretName"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// BoostTable merges configured factors over the default table
func (c *Config) BoostTable() (blend.BoostTable, error) {
	table := blend.DefaultBoostTable()
	for name, factor := range c.Blend.BoostFactors {
		tier, err := models.ParseBoostTier(name)
		if err != nil {
			return nil, err
		}
		table[tier] = factor
	}
	return table, table.Validate()
}

// Matcher builds the configured candidate matcher
func (c *Config) Matcher() (blend.Matcher, error) {
	mode, err := blend.ParseMatchMode(c.Blend.MatchMode)
	if err != nil {
		return blend.Matcher{}, err
	}
	return blend.Matcher{
		Mode:            mode,
		AllowMultiMatch: c.Blend.AllowMultiMatch,
		MatchFilm:       c.Blend.MatchFilm,
	}, nil
}

// SentimentBoost returns the configured sentiment pass, or nil when disabled
func (c *Config) SentimentBoost() *blend.SentimentBoost {
	if !c.Blend.Sentiment.Enabled {
		return nil
	}
	return &blend.SentimentBoost{
		VeryPositive:       c.Blend.Sentiment.VeryPositiveThreshold,
		VeryPositiveFactor: c.Blend.Sentiment.VeryPositiveFactor,
		Positive:           c.Blend.Sentiment.PositiveThreshold,
		PositiveFactor:     c.Blend.Sentiment.PositiveFactor,
	}
}

// DataTimeout returns the remote source timeout
func (c *Config) DataTimeout() time.Duration {
	return time.Duration(c.Data.TimeoutSeconds) * time.Second
}

// ModelCacheTTL returns the prediction cache TTL
func (c *Config) ModelCacheTTL() time.Duration {
	return time.Duration(c.Model.CacheTTLSeconds) * time.Second
}
