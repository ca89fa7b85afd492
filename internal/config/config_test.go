// Tablemates - Social Dinner Event Booking Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api" {
		t.Errorf("BaseURL = %q, want default", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v, want 20s", cfg.API.Timeout)
	}
	if cfg.API.RetryAttempts != 3 {
		t.Errorf("RetryAttempts = %d, want 3", cfg.API.RetryAttempts)
	}
	if cfg.API.RetryDelay != 2*time.Second {
		t.Errorf("RetryDelay = %v, want 2s", cfg.API.RetryDelay)
	}
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com/api")
	t.Setenv("PAYMENT_KEY_ID", "rzp_test_123")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://api.example.com/api" {
		t.Errorf("BaseURL = %q, want env override", cfg.API.BaseURL)
	}
	if cfg.Payment.KeyID != "rzp_test_123" {
		t.Errorf("KeyID = %q, want rzp_test_123", cfg.Payment.KeyID)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "api:\n  base_url: https://file.example.com/api\n  retry_attempts: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://file.example.com/api" {
		t.Errorf("BaseURL = %q, want file value", cfg.API.BaseURL)
	}
	if cfg.API.RetryAttempts != 5 {
		t.Errorf("RetryAttempts = %d, want 5", cfg.API.RetryAttempts)
	}
	// Values absent from the file keep their defaults.
	if cfg.API.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v, want default 20s", cfg.API.Timeout)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com/api\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("API_BASE_URL", "https://env.example.com/api")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://env.example.com/api" {
		t.Errorf("BaseURL = %q, env should beat file", cfg.API.BaseURL)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"API_BASE_URL", "api.base_url"},
		{"API_RETRY_ATTEMPTS", "api.retry_attempts"},
		{"SESSION_TOKEN_PATH", "session.token_path"},
		{"PAYMENT_KEY_ID", "payment.key_id"},
		{"LOG_FORMAT", "log.format"},
		{"PATH", ""},
		{"HOME", ""},
		{"API_", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := envTransformFunc(tt.key); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty base url", func(c *Config) { c.API.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.API.BaseURL = "localhost/api" }},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"zero retry attempts", func(c *Config) { c.API.RetryAttempts = 0 }},
		{"negative retry delay", func(c *Config) { c.API.RetryDelay = -time.Second }},
		{"zero rate limit", func(c *Config) { c.API.RateLimit = 0 }},
		{"zero rate burst", func(c *Config) { c.API.RateBurst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
