// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config holds all application configuration
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	HackerNews HackerNewsConfig `envPrefix:"HN_"`
	Cache      CacheConfig      `envPrefix:"CACHE_"`
	Stories    StoriesConfig    `envPrefix:"STORIES_"`
}

// HackerNewsConfig holds upstream client configuration
type HackerNewsConfig struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"https://hacker-news.firebaseio.com"`
	Timeout        time.Duration `env:"TIMEOUT" envDefault:"5s"`
	MaxRetries     int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"500ms"`
	RateLimit      float64       `env:"RATE_LIMIT" envDefault:"0"`
}

// CacheConfig holds cache lifetimes
type CacheConfig struct {
	TTL          time.Duration `env:"TTL" envDefault:"5m"`
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
}

// StoriesConfig holds aggregation limits
type StoriesConfig struct {
	MaxConcurrency int `env:"MAX_CONCURRENCY" envDefault:"10"`
	MaxN           int `env:"MAX_N" envDefault:"500"`
}

// Load reads configuration from environment variables
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	if c.HackerNews.Timeout <= 0 {
		return fmt.Errorf("HN_TIMEOUT must be positive, got %v", c.HackerNews.Timeout)
	}
	if c.HackerNews.MaxRetries < 0 {
		return fmt.Errorf("HN_MAX_RETRIES must not be negative, got %d", c.HackerNews.MaxRetries)
	}
	if c.HackerNews.RetryBaseDelay < 0 {
		return fmt.Errorf("HN_RETRY_BASE_DELAY must not be negative, got %v", c.HackerNews.RetryBaseDelay)
	}
	if c.HackerNews.RateLimit < 0 {
		return fmt.Errorf("HN_RATE_LIMIT must not be negative, got %v", c.HackerNews.RateLimit)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive, got %v", c.Cache.TTL)
	}
	if c.Cache.ReapInterval <= 0 {
		return fmt.Errorf("CACHE_REAP_INTERVAL must be positive, got %v", c.Cache.ReapInterval)
	}
	if c.Stories.MaxConcurrency < 1 {
		return fmt.Errorf("STORIES_MAX_CONCURRENCY must be at least 1, got %d", c.Stories.MaxConcurrency)
	}
	if c.Stories.MaxN < 1 {
		return fmt.Errorf("STORIES_MAX_N must be at least 1, got %d", c.Stories.MaxN)
	}
	return nil
}

// Level parses LogLevel
func (c *Config) Level() (zerolog.Level, error) {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
