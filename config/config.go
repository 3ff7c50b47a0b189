// Package config loads the honyaku server configuration from a YAML file,
// environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIKey       = "HONYAKU_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY" // fallback when EnvAPIKey is unset
	EnvBaseURL      = "HONYAKU_BASE_URL"
	EnvModel        = "HONYAKU_MODEL"
	EnvAddr         = "HONYAKU_ADDR"
	EnvDebug        = "HONYAKU_DEBUG"
	EnvCacheSize    = "HONYAKU_CACHE_SIZE"
)

// Config is the complete server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Model     ModelConfig     `yaml:"model"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig configures the HTTP front-end.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Debug           bool          `yaml:"debug"`
	MaxTextLength   int           `yaml:"max_text_length"`  // in characters
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"` // request body limit
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MetricsAddr     string        `yaml:"metrics_addr"` // empty disables the metrics listener
}

// CacheConfig sizes the translation cache.
type CacheConfig struct {
	Size int `yaml:"size"`
}

// ModelConfig configures the OpenAI-compatible backend.
type ModelConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	Model           string        `yaml:"model"`
	OCRModel        string        `yaml:"ocr_model"`
	ReasoningEffort string        `yaml:"reasoning_effort"`
	Temperature     float32       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
}

// RetryConfig configures provider retries. MaxRetries 0 disables them.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// RateLimitConfig configures provider rate limiting. RequestsPerMinute 0
// disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxTextLength:   500,
			MaxUploadBytes:  10 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			Size: 100,
		},
		Model: ModelConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			Timeout:     60 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// environment overrides and validates the result. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config yaml file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml from %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *Config) applyEnvOverrides() error {
	if val := os.Getenv(EnvAPIKey); val != "" {
		c.Model.APIKey = val
	} else if val := os.Getenv(EnvOpenAIAPIKey); val != "" && c.Model.APIKey == "" {
		c.Model.APIKey = val
	}
	if val := os.Getenv(EnvBaseURL); val != "" {
		c.Model.BaseURL = val
	}
	if val := os.Getenv(EnvModel); val != "" {
		c.Model.Model = val
	}
	if val := os.Getenv(EnvAddr); val != "" {
		c.Server.Addr = val
	}
	if val := os.Getenv(EnvDebug); val != "" {
		debug, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvDebug, err)
		}
		c.Server.Debug = debug
	}
	if val := os.Getenv(EnvCacheSize); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvCacheSize, err)
		}
		c.Cache.Size = size
	}
	return nil
}

// Validate checks the configuration for values the server cannot run with.
// A missing API key is not an error here; the command decides whether it
// needs one.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxTextLength < 1 {
		errs = append(errs, fmt.Errorf("server.max_text_length must be positive, got %d", c.Server.MaxTextLength))
	}
	if c.Server.MaxUploadBytes < 1 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes))
	}
	if c.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout cannot be negative"))
	}
	if c.Server.MetricsAddr != "" && c.Server.MetricsAddr == c.Server.Addr {
		errs = append(errs, errors.New("server.metrics_addr must differ from server.addr"))
	}
	if c.Cache.Size < 1 {
		errs = append(errs, fmt.Errorf("cache.size must be at least 1, got %d", c.Cache.Size))
	}
	if c.Model.Model == "" {
		errs = append(errs, errors.New("model.model is required"))
	}
	switch c.Model.ReasoningEffort {
	case "", "minimal", "low", "medium", "high":
	default:
		errs = append(errs, fmt.Errorf("model.reasoning_effort %q is not one of minimal, low, medium, high", c.Model.ReasoningEffort))
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		errs = append(errs, fmt.Errorf("model.temperature must be within [0, 2], got %v", c.Model.Temperature))
	}
	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries cannot be negative"))
	}
	if c.Retry.MaxRetries > 0 && c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry.base_delay must be positive when retries are enabled"))
	}
	if c.Retry.MaxRetries > 0 && c.Retry.MaxDelay <= 0 {
		errs = append(errs, errors.New("retry.max_delay must be positive when retries are enabled"))
	} else if c.Retry.MaxDelay > 0 && c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, errors.New("retry.max_delay must not be less than retry.base_delay"))
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_minute cannot be negative"))
	}
	if c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rate_limit.burst cannot be negative"))
	}

	return errors.Join(errs...)
}

// String renders the configuration as YAML with the API key masked.
func (c *Config) String() string {
	masked := *c
	if masked.Model.APIKey != "" {
		masked.Model.APIKey = "********"
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
