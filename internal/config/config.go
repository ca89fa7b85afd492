// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package config loads client configuration with koanf.
//
// Configuration is layered, lowest priority first:
//  1. struct defaults
//  2. .env file in the working directory (loaded into the environment)
//  3. YAML config file (config.yaml, config.yml, or CONFIG_PATH)
//  4. environment variables (API_BASE_URL, PAYMENT_KEY_ID, LOG_LEVEL, ...)
//
// The API base URL and the payment-gateway public key are always supplied
// externally; they are never hard-coded anywhere else in the client.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// envSections are the top-level config sections recognized in environment
// variable names: API_BASE_URL -> api.base_url, LOG_LEVEL -> log.level.
var envSections = []string{"API", "PAYMENT", "SESSION", "LOG"}

// Config is the root configuration for the client.
type Config struct {
	API     APIConfig     `koanf:"api"`
	Payment PaymentConfig `koanf:"payment"`
	Session SessionConfig `koanf:"session"`
	Log     LogConfig     `koanf:"log"`
}

// APIConfig configures the transport client and the event fetch cycle.
type APIConfig struct {
	// BaseURL is the remote API root, e.g. "https://api.example.com/api".
	BaseURL string `koanf:"base_url"`

	// Timeout bounds every in-flight request.
	Timeout time.Duration `koanf:"timeout"`

	// RetryAttempts is the total number of attempts for the bulk event fetch.
	RetryAttempts int `koanf:"retry_attempts"`

	// RetryDelay is the first inter-attempt delay; it doubles per attempt.
	RetryDelay time.Duration `koanf:"retry_delay"`

	// RateLimit is the sustained outbound requests-per-second ceiling.
	RateLimit float64 `koanf:"rate_limit"`

	// RateBurst is the burst size for the rate limiter.
	RateBurst int `koanf:"rate_burst"`

	// BreakerEnabled wraps outbound calls in a circuit breaker.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// PaymentConfig configures the hosted checkout boundary.
type PaymentConfig struct {
	// KeyID is the payment gateway's public key handed to the checkout
	// overlay. Secret keys never reach this client.
	KeyID string `koanf:"key_id"`
}

// SessionConfig configures credential persistence.
type SessionConfig struct {
	// TokenPath is the BadgerDB directory holding the persisted credential
	// token. Empty means an in-memory store (nothing survives exit).
	TokenPath string `koanf:"token_path"`
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	home, _ := os.UserHomeDir()
	tokenPath := ""
	if home != "" {
		tokenPath = home + "/.tablemates/credentials"
	}
	return &Config{
		API: APIConfig{
			BaseURL:        "http://localhost:5000/api",
			Timeout:        20 * time.Second,
			RetryAttempts:  3,
			RetryDelay:     2 * time.Second,
			RateLimit:      10,
			RateBurst:      5,
			BreakerEnabled: true,
		},
		Payment: PaymentConfig{
			KeyID: "",
		},
		Session: SessionConfig{
			TokenPath: tokenPath,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an
// optional YAML file, and environment variables.
func Load(configPath string) (*Config, error) {
	// A .env file is a development convenience; absence is not an error.
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf paths:
// API_BASE_URL -> api.base_url, SESSION_TOKEN_PATH -> session.token_path.
// Variables outside the known sections are skipped.
func envTransformFunc(key string) string {
	for _, section := range envSections {
		prefix := section + "_"
		if strings.HasPrefix(key, prefix) {
			rest := strings.TrimPrefix(key, prefix)
			if rest == "" {
				return ""
			}
			return strings.ToLower(section) + "." + strings.ToLower(rest)
		}
	}
	return ""
}

// Validate checks the loaded configuration for values the client cannot
// operate with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.RetryAttempts < 1 {
		return fmt.Errorf("api.retry_attempts must be at least 1")
	}
	if c.API.RetryDelay < 0 {
		return fmt.Errorf("api.retry_delay must not be negative")
	}
	if c.API.RateLimit <= 0 {
		return fmt.Errorf("api.rate_limit must be positive")
	}
	if c.API.RateBurst < 1 {
		return fmt.Errorf("api.rate_burst must be at least 1")
	}
	return nil
}
