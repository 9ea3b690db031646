package domain

import "time"

// Config is the complete process configuration.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Dataset     DatasetConfig   `mapstructure:"dataset"`
	Feedback    FeedbackConfig  `mapstructure:"feedback"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Logging     LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatasetConfig holds reference dataset settings. Dir is optional; when set,
// files found there override the embedded datasets file by file.
type DatasetConfig struct {
	Dir string `mapstructure:"dir"`
}

// FeedbackConfig holds the clinician feedback store settings.
type FeedbackConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// CacheConfig holds the evaluation result cache settings.
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries"`
}

// RateLimitConfig holds the per-client rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig holds the logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
