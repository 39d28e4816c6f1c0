package config

import (
	"encoding/json"
	"fmt"
	"os"
)

type Config struct {
	Feed    FeedConfig    `json:"feed"`
	Health  HealthConfig  `json:"health"`
	Relay   RelayConfig   `json:"relay"`
	Storage StorageConfig `json:"storage"`
	Metrics MetricsConfig `json:"metrics"`
	Logging LoggingConfig `json:"logging"`
}

type FeedConfig struct {
	// Source is a local file path or an http(s) URL holding the endpoint
	// document ({"api_site": {...}}).
	Source    string `json:"source"`
	WatchFile bool   `json:"watch_file"`
	UserAgent string `json:"user_agent"`
}

type HealthConfig struct {
	IntervalSeconds int    `json:"interval_seconds"` // 0 disables the internal loop (external scheduler)
	TimeoutSeconds  int    `json:"timeout_seconds"`
	Concurrency     int    `json:"concurrency"`
	Mode            string `json:"mode"` // "http" or "connect"
	Socks5          string `json:"socks5,omitempty"`
	HistoryDays     int    `json:"history_days"`
	UserAgent       string `json:"user_agent"`
}

type RelayConfig struct {
	Addr               string `json:"addr"`
	DefaultPrefix      string `json:"default_prefix,omitempty"` // overrides the request-origin default
	UpstreamTimeoutMs  int    `json:"upstream_timeout_ms"`
	APIKeyEnv          string `json:"api_key_env"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	EnableAPIKeyAuth   bool   `json:"enable_api_key_auth"`
	EnableIPRateLimit  bool   `json:"enable_ip_rate_limit"`
}

type StorageConfig struct {
	Type string `json:"type"` // "file", "sqlite", "redis"
	Path string `json:"path"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Endpoint  string `json:"endpoint"`
	Namespace string `json:"namespace"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Load reads configuration from JSON file
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed.Source == "" {
		c.Feed.Source = "api.json"
	}
	if c.Health.TimeoutSeconds == 0 {
		c.Health.TimeoutSeconds = 10
	}
	if c.Health.Concurrency == 0 {
		c.Health.Concurrency = 8
	}
	if c.Health.Mode == "" {
		c.Health.Mode = "http"
	}
	if c.Health.HistoryDays == 0 {
		c.Health.HistoryDays = 30
	}
	if c.Relay.Addr == "" {
		c.Relay.Addr = ":8083"
	}
	if c.Relay.UpstreamTimeoutMs == 0 {
		c.Relay.UpstreamTimeoutMs = 30000
	}
	if c.Relay.RateLimitPerMinute == 0 {
		c.Relay.RateLimitPerMinute = 1200
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/report.md"
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "feedgateway"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Health.Concurrency < 1 || c.Health.Concurrency > 1024 {
		return fmt.Errorf("health concurrency must be between 1 and 1024")
	}
	if c.Health.TimeoutSeconds < 1 || c.Health.TimeoutSeconds > 300 {
		return fmt.Errorf("health timeout_seconds must be between 1 and 300")
	}
	if c.Health.Mode != "http" && c.Health.Mode != "connect" {
		return fmt.Errorf("health mode must be 'http' or 'connect'")
	}
	if c.Health.HistoryDays < 1 {
		return fmt.Errorf("health history_days must be positive")
	}
	if c.Storage.Type != "file" && c.Storage.Type != "sqlite" && c.Storage.Type != "redis" {
		return fmt.Errorf("storage type must be 'file', 'sqlite', or 'redis'")
	}
	return nil
}
