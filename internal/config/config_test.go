package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, `
storage:
  backend: file
  file_path: ./data/catalog.json
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := validConfig(t)

	if cfg.Runner.BatchSize != 5 {
		t.Errorf("Expected default batch size 5, got %d", cfg.Runner.BatchSize)
	}
	if cfg.Runner.RunDeadline != 10*time.Second {
		t.Errorf("Expected default run deadline 10s, got %v", cfg.Runner.RunDeadline)
	}
	if cfg.Runner.DropThreshold != 10.0 {
		t.Errorf("Expected default drop threshold 10, got %f", cfg.Runner.DropThreshold)
	}
	if cfg.Scraper.Timeout != 30*time.Second {
		t.Errorf("Expected default scraper timeout 30s, got %v", cfg.Scraper.Timeout)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Expected default file backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
runner:
  batch_size: 10
  run_deadline: 30s
  drop_threshold: 25
storage:
  backend: postgres
  dsn: postgres://pricewatch@localhost:5432/pricewatch
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Runner.BatchSize != 10 {
		t.Errorf("Expected batch size 10, got %d", cfg.Runner.BatchSize)
	}
	if cfg.Runner.RunDeadline != 30*time.Second {
		t.Errorf("Expected run deadline 30s, got %v", cfg.Runner.RunDeadline)
	}
	if cfg.Storage.Backend != "postgres" {
		t.Errorf("Expected postgres backend, got %s", cfg.Storage.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Config should validate, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero batch size", func(c *Config) { c.Runner.BatchSize = 0 }, true},
		{"tiny deadline", func(c *Config) { c.Runner.RunDeadline = time.Millisecond }, true},
		{"threshold above 100", func(c *Config) { c.Runner.DropThreshold = 101 }, true},
		{"poll without sane interval", func(c *Config) {
			c.Runner.PollEnabled = true
			c.Runner.PollInterval = time.Second
		}, true},
		{"smtp enabled without host", func(c *Config) { c.SMTP.Enabled = true; c.SMTP.From = "a@b.c" }, true},
		{"smtp enabled without from", func(c *Config) { c.SMTP.Enabled = true; c.SMTP.Host = "smtp.example.com" }, true},
		{"telegram enabled without token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.ChatID = "1" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = "postgres"; c.Storage.DSN = "" }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "redis" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
