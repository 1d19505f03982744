package config

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var allVars = []string{
	"PORT", "LOG_LEVEL", "LOG_FORMAT",
	"HN_BASE_URL", "HN_TIMEOUT", "HN_MAX_RETRIES", "HN_RETRY_BASE_DELAY", "HN_RATE_LIMIT",
	"CACHE_TTL", "CACHE_REAP_INTERVAL",
	"STORIES_MAX_CONCURRENCY", "STORIES_MAX_N",
}

// clearEnv unsets every variable Load reads; t.Setenv restores them after the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allVars {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected Port '8080', got '%s'", cfg.Port)
	}
	if cfg.HackerNews.BaseURL != "https://hacker-news.firebaseio.com" {
		t.Errorf("Expected default base URL, got '%s'", cfg.HackerNews.BaseURL)
	}
	if cfg.HackerNews.Timeout != 5*time.Second {
		t.Errorf("Expected Timeout 5s, got %v", cfg.HackerNews.Timeout)
	}
	if cfg.HackerNews.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries 3, got %d", cfg.HackerNews.MaxRetries)
	}
	if cfg.HackerNews.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("Expected RetryBaseDelay 500ms, got %v", cfg.HackerNews.RetryBaseDelay)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Expected TTL 5m, got %v", cfg.Cache.TTL)
	}
	if cfg.Stories.MaxConcurrency != 10 {
		t.Errorf("Expected MaxConcurrency 10, got %d", cfg.Stories.MaxConcurrency)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HN_BASE_URL", "http://localhost:1234")
	t.Setenv("HN_TIMEOUT", "2s")
	t.Setenv("HN_RATE_LIMIT", "12.5")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("STORIES_MAX_CONCURRENCY", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected Port '9090', got '%s'", cfg.Port)
	}
	if cfg.HackerNews.BaseURL != "http://localhost:1234" {
		t.Errorf("Expected overridden base URL, got '%s'", cfg.HackerNews.BaseURL)
	}
	if cfg.HackerNews.Timeout != 2*time.Second {
		t.Errorf("Expected Timeout 2s, got %v", cfg.HackerNews.Timeout)
	}
	if cfg.HackerNews.RateLimit != 12.5 {
		t.Errorf("Expected RateLimit 12.5, got %v", cfg.HackerNews.RateLimit)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Errorf("Expected TTL 30s, got %v", cfg.Cache.TTL)
	}
	if cfg.Stories.MaxConcurrency != 4 {
		t.Errorf("Expected MaxConcurrency 4, got %d", cfg.Stories.MaxConcurrency)
	}

	lvl, err := cfg.Level()
	if err != nil || lvl != zerolog.DebugLevel {
		t.Errorf("Expected debug level, got %v (%v)", lvl, err)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("HN_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Error("Expected error for invalid HN_TIMEOUT")
	}
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"zero timeout", func(c *Config) { c.HackerNews.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.HackerNews.MaxRetries = -1 }},
		{"negative rate limit", func(c *Config) { c.HackerNews.RateLimit = -2 }},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }},
		{"zero reap interval", func(c *Config) { c.Cache.ReapInterval = 0 }},
		{"zero concurrency", func(c *Config) { c.Stories.MaxConcurrency = 0 }},
		{"zero max n", func(c *Config) { c.Stories.MaxN = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}
