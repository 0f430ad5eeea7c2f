// Package config provides configuration management for the application.
package config

import (
	"time"

	"github.com/spf13/viper"

	"warmstream/internal/core"
)

// Config holds the application configuration
type Config struct {
	Server   ServerConfig
	Provider core.ProviderConfig
	Warmup   WarmupConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
}

// WarmupConfig holds warmup scheduler configuration
type WarmupConfig struct {
	Enabled      bool
	InitialDelay time.Duration
	Interval     time.Duration
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// LoggingConfig holds application log configuration
type LoggingConfig struct {
	Format string // "text" or "json"
	Level  string
}

// Load reads configuration from a .env file (optional) and the environment.
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() //nolint:errcheck

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("AI_PROVIDER", "bedrock")
	viper.SetDefault("AI_MODEL_ID", "us.anthropic.claude-haiku-4-5-20250910-v1:0")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("WARMUP_ENABLED", true)
	viper.SetDefault("WARMUP_INITIAL_DELAY", "30s")
	viper.SetDefault("WARMUP_INTERVAL", "2m")
	viper.SetDefault("METRICS_ENABLED", false)
	viper.SetDefault("METRICS_ENDPOINT", "/metrics")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("PORT"),
		},
		Provider: core.ProviderConfig{
			ProviderName: viper.GetString("AI_PROVIDER"),
			ModelID:      viper.GetString("AI_MODEL_ID"),
			Region:       viper.GetString("AWS_REGION"),
			APIKey:       viper.GetString("AI_API_KEY"),
		},
		Warmup: WarmupConfig{
			Enabled:      viper.GetBool("WARMUP_ENABLED"),
			InitialDelay: viper.GetDuration("WARMUP_INITIAL_DELAY"),
			Interval:     viper.GetDuration("WARMUP_INTERVAL"),
		},
		Metrics: MetricsConfig{
			Enabled:  viper.GetBool("METRICS_ENABLED"),
			Endpoint: viper.GetString("METRICS_ENDPOINT"),
		},
		Logging: LoggingConfig{
			Format: viper.GetString("LOG_FORMAT"),
			Level:  viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
