// Package config provides configuration loading and validation for the CLI
// and pipeline.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/crediscan/crediscan/internal/faults"
)

// Cache backend selectors.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultCacheDir        = "cache"
	DefaultRequestDeadline = 5 * time.Minute
	DefaultCallDeadline    = 45 * time.Second
	DefaultMaxAttempts     = 3
)

// Config holds everything the pipeline needs to reach its outbound services
// and cache store. All fields are optional at load time; per-stage credential
// checks happen at stage entry so an analysis-only run does not require
// aggregation tokens.
type Config struct {
	// Credentials
	SearchAPIKey    string   `json:"search_api_key,omitempty"`
	LLMAPIKey       string   `json:"llm_api_key,omitempty"`
	AggregateTokens []string `json:"aggregate_tokens,omitempty"`
	AggregateAPIURL string   `json:"aggregate_api_url,omitempty" validate:"omitempty,url"`

	// Cache
	CacheBackend string `json:"cache_backend,omitempty" validate:"omitempty,oneof=file memory redis postgres"`
	CacheDir     string `json:"cache_dir,omitempty"`
	RedisAddr    string `json:"redis_addr,omitempty"`
	DatabaseURL  string `json:"database_url,omitempty"`

	// Behavior
	RequestDeadline time.Duration `json:"request_deadline,omitempty"`
	CallDeadline    time.Duration `json:"call_deadline,omitempty"`
	MaxAttempts     int           `json:"max_attempts,omitempty" validate:"omitempty,min=1,max=10"`
	UseBrowser      bool          `json:"use_browser,omitempty"`
	Verbose         bool          `json:"verbose,omitempty"`
	LogLevel        string        `json:"log_level,omitempty"`
	LogFormat       string        `json:"log_format,omitempty"`
}

// Load builds a Config from an optional JSON file overlaid with environment
// variables. Environment values win over file values.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		fileCfg, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile reads a JSON config file.
func loadFile(path string) (*Config, error) {
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// applyEnv overlays recognized environment variables onto the config.
func (c *Config) applyEnv() {
	if v := os.Getenv("SERPER_API_KEY"); v != "" {
		c.SearchAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.LLMAPIKey = v
	}
	if v := os.Getenv("AGGREGATE_TOKENS"); v != "" {
		c.AggregateTokens = ParseTokens(v)
	}
	if v := os.Getenv("AGGREGATE_API_URL"); v != "" {
		c.AggregateAPIURL = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.CacheBackend = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
}

// applyDefaults fills unset fields with defaults.
func (c *Config) applyDefaults() {
	if c.CacheBackend == "" {
		c.CacheBackend = BackendFile
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.RequestDeadline == 0 {
		c.RequestDeadline = DefaultRequestDeadline
	}
	if c.CallDeadline == 0 {
		c.CallDeadline = DefaultCallDeadline
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}

// Validate checks structural validity of the configuration. Credential
// presence is deliberately not checked here; see the Require* methods.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if c.CacheBackend == BackendRedis && c.RedisAddr == "" {
		return fmt.Errorf("config error: cache_backend is redis but redis_addr is not set")
	}
	if c.CacheBackend == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("config error: cache_backend is postgres but database_url is not set")
	}
	return nil
}

// RequireSearch fails with a configuration fault when the search credential
// is absent. Called at discovery stage entry.
func (c *Config) RequireSearch() error {
	if c.SearchAPIKey == "" {
		return faults.Configuration("config", "SERPER_API_KEY is not set")
	}
	return nil
}

// RequireLLM fails with a configuration fault when the LLM credential is
// absent. Called at discovery and analysis stage entry.
func (c *Config) RequireLLM() error {
	if c.LLMAPIKey == "" {
		return faults.Configuration("config", "GEMINI_API_KEY is not set")
	}
	return nil
}

// RequireAggregation fails with a configuration fault when no aggregation
// token is configured. Called at aggregation stage entry.
func (c *Config) RequireAggregation() error {
	if len(c.AggregateTokens) == 0 {
		return faults.Configuration("config", "AGGREGATE_TOKENS is not set")
	}
	if c.AggregateAPIURL == "" {
		return faults.Configuration("config", "AGGREGATE_API_URL is not set")
	}
	return nil
}

// ParseTokens splits a comma-separated token list, trimming whitespace and
// dropping empty entries. Token order is preserved: aggregation tries tokens
// in exactly this order.
func ParseTokens(s string) []string {
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}
