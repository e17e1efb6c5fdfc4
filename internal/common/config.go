// Package common provides shared utilities for Nivesh
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Nivesh
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Client      ClientConfig  `toml:"client"`
	Poller      PollerConfig  `toml:"poller"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ClientConfig holds the upstream market-data API client configuration
type ClientConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the client timeout duration
func (c *ClientConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// PollerConfig holds market poller configuration.
// MarketOpen/MarketClose are wall-clock times ("HH:MM") in Timezone;
// the window is inclusive at both ends.
type PollerConfig struct {
	Interval    string `toml:"interval"`
	MarketOpen  string `toml:"market_open"`
	MarketClose string `toml:"market_close"`
	Timezone    string `toml:"timezone"`
}

// GetInterval parses and returns the polling interval
func (c *PollerConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Client: ClientConfig{
			BaseURL:   "https://api.bharatquote.in",
			RateLimit: 5,
			Timeout:   "30s",
		},
		Poller: PollerConfig{
			Interval:    "30s",
			MarketOpen:  "09:00",
			MarketClose: "15:30",
			Timezone:    "Asia/Kolkata",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NIVESH_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("NIVESH_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("NIVESH_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("NIVESH_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if url := os.Getenv("NIVESH_CLIENT_BASE_URL"); url != "" {
		config.Client.BaseURL = url
	}

	if interval := os.Getenv("NIVESH_POLL_INTERVAL"); interval != "" {
		config.Poller.Interval = interval
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
