// Package config provides configuration loading from environment variables,
// with an optional YAML file overlay.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/podbrief/podbrief-api/internal/chunker"
	"github.com/podbrief/podbrief-api/internal/transcribe"
)

// Static errors for configuration validation.
var (
	// ErrOpenAIKeyRequired is returned when OPENAI_API_KEY is not set.
	ErrOpenAIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
	// ErrGeminiKeyRequired is returned when SUMMARY_PROVIDER is "gemini"
	// but GEMINI_API_KEY is not set.
	ErrGeminiKeyRequired = errors.New("config: GEMINI_API_KEY is required when SUMMARY_PROVIDER is gemini")
	// ErrUnknownSummaryProvider is returned for an unrecognized SUMMARY_PROVIDER.
	ErrUnknownSummaryProvider = errors.New(`config: SUMMARY_PROVIDER must be "openai" or "gemini"`)
)

// Summary provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port" yaml:"port"`

	// AI provider settings
	OpenAIAPIKey    string `env:"OPENAI_API_KEY, required" json:"-" yaml:"-"` // Masked in JSON
	GeminiAPIKey    string `env:"GEMINI_API_KEY" json:"-" yaml:"-"`           // Masked in JSON
	SummaryProvider string `env:"SUMMARY_PROVIDER, default=openai" json:"summary_provider" yaml:"summary_provider"`

	// Storage settings
	StorageRoot string `env:"STORAGE_ROOT, default=/tmp/podbrief/store" json:"storage_root" yaml:"storage_root"`
	WorkDir     string `env:"WORK_DIR, default=/tmp/podbrief/work" json:"work_dir" yaml:"work_dir"`

	// Metadata settings. When DATABASE_URL is set, episode and summary
	// records live in Postgres instead of blob storage.
	DatabaseURL string `env:"DATABASE_URL" json:"-" yaml:"-"` // Masked in JSON

	// Processing settings
	MaxConcurrentChunks int     `env:"MAX_CONCURRENT_CHUNKS, default=10" json:"max_concurrent_chunks" yaml:"max_concurrent_chunks"`
	ChunkSizeThreshold  int64   `env:"CHUNK_SIZE_THRESHOLD_BYTES, default=5242880" json:"chunk_size_threshold_bytes" yaml:"chunk_size_threshold_bytes"`
	NominalBitrateKbps  int     `env:"NOMINAL_BITRATE_KBPS, default=128" json:"nominal_bitrate_kbps" yaml:"nominal_bitrate_kbps"`
	ChunkMinSec         int     `env:"CHUNK_MIN_SEC, default=60" json:"chunk_min_sec" yaml:"chunk_min_sec"`
	ChunkMaxSec         int     `env:"CHUNK_MAX_SEC, default=600" json:"chunk_max_sec" yaml:"chunk_max_sec"`
	ChunkOverlapSec     float64 `env:"CHUNK_OVERLAP_SEC, default=1" json:"chunk_overlap_sec" yaml:"chunk_overlap_sec"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty" yaml:"s3_bucket"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" yaml:"s3_region"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" yaml:"s3_endpoint"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-" yaml:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-" yaml:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" yaml:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" yaml:"log_level"`    // "debug", "info", "warn", "error"

	// ConfigFile is an optional YAML file whose values override the
	// environment. Secrets stay in the environment; the file only carries
	// non-sensitive settings.
	ConfigFile string `env:"CONFIG_FILE" json:"config_file,omitempty" yaml:"-"`
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// PostgresEnabled returns true if a Postgres metadata backend is configured.
func (c *Config) PostgresEnabled() bool {
	return c.DatabaseURL != ""
}

// ChunkOpts returns the chunk planning options derived from the config.
func (c *Config) ChunkOpts() chunker.Opts {
	return chunker.Opts{
		SizeThresholdBytes: c.ChunkSizeThreshold,
		NominalBitrateKbps: c.NominalBitrateKbps,
		MinChunkSeconds:    c.ChunkMinSec,
		MaxChunkSeconds:    c.ChunkMaxSec,
		OverlapSeconds:     c.ChunkOverlapSec,
	}
}

// TranscribeOptions returns the bounded transcriber options derived from
// the config.
func (c *Config) TranscribeOptions() transcribe.Options {
	return transcribe.Options{
		MaxConcurrent: c.MaxConcurrentChunks,
		BitrateKbps:   c.NominalBitrateKbps,
	}
}

// Load reads configuration from environment variables using go-envconfig,
// then overlays values from the YAML file named by CONFIG_FILE, if any.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "OPENAI_API_KEY") {
			return nil, ErrOpenAIKeyRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.ConfigFile != "" {
		if err := cfg.overlayFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileConfig mirrors the overridable Config fields with pointers so only
// keys present in the file are applied.
type fileConfig struct {
	Port                *int     `yaml:"port"`
	SummaryProvider     *string  `yaml:"summary_provider"`
	StorageRoot         *string  `yaml:"storage_root"`
	WorkDir             *string  `yaml:"work_dir"`
	MaxConcurrentChunks *int     `yaml:"max_concurrent_chunks"`
	ChunkSizeThreshold  *int64   `yaml:"chunk_size_threshold_bytes"`
	NominalBitrateKbps  *int     `yaml:"nominal_bitrate_kbps"`
	ChunkMinSec         *int     `yaml:"chunk_min_sec"`
	ChunkMaxSec         *int     `yaml:"chunk_max_sec"`
	ChunkOverlapSec     *float64 `yaml:"chunk_overlap_sec"`
	S3Bucket            *string  `yaml:"s3_bucket"`
	S3Region            *string  `yaml:"s3_region"`
	S3Endpoint          *string  `yaml:"s3_endpoint"`
	LogFormat           *string  `yaml:"log_format"`
	LogLevel            *string  `yaml:"log_level"`
}

// overlayFile applies settings from a YAML file on top of the environment.
func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - path is operator-provided
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if fc.Port != nil {
		c.Port = *fc.Port
	}
	if fc.SummaryProvider != nil {
		c.SummaryProvider = *fc.SummaryProvider
	}
	if fc.StorageRoot != nil {
		c.StorageRoot = *fc.StorageRoot
	}
	if fc.WorkDir != nil {
		c.WorkDir = *fc.WorkDir
	}
	if fc.MaxConcurrentChunks != nil {
		c.MaxConcurrentChunks = *fc.MaxConcurrentChunks
	}
	if fc.ChunkSizeThreshold != nil {
		c.ChunkSizeThreshold = *fc.ChunkSizeThreshold
	}
	if fc.NominalBitrateKbps != nil {
		c.NominalBitrateKbps = *fc.NominalBitrateKbps
	}
	if fc.ChunkMinSec != nil {
		c.ChunkMinSec = *fc.ChunkMinSec
	}
	if fc.ChunkMaxSec != nil {
		c.ChunkMaxSec = *fc.ChunkMaxSec
	}
	if fc.ChunkOverlapSec != nil {
		c.ChunkOverlapSec = *fc.ChunkOverlapSec
	}
	if fc.S3Bucket != nil {
		c.S3Bucket = *fc.S3Bucket
	}
	if fc.S3Region != nil {
		c.S3Region = *fc.S3Region
	}
	if fc.S3Endpoint != nil {
		c.S3Endpoint = *fc.S3Endpoint
	}
	if fc.LogFormat != nil {
		c.LogFormat = *fc.LogFormat
	}
	if fc.LogLevel != nil {
		c.LogLevel = *fc.LogLevel
	}

	return nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIKeyRequired
	}
	switch strings.ToLower(c.SummaryProvider) {
	case ProviderOpenAI:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return ErrGeminiKeyRequired
		}
	default:
		return ErrUnknownSummaryProvider
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, SummaryProvider: %s, StorageRoot: %s, WorkDir: %s, MaxConcurrentChunks: %d, ChunkMaxSec: %d, S3Bucket: %s, S3Region: %s, Postgres: %t, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.SummaryProvider,
		c.StorageRoot,
		c.WorkDir,
		c.MaxConcurrentChunks,
		c.ChunkMaxSec,
		c.S3Bucket,
		c.S3Region,
		c.PostgresEnabled(),
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
