package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Runner   RunnerConfig   `mapstructure:"runner"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the HTTP trigger surface configuration
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// RunnerConfig holds processing run behavior configuration
type RunnerConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	RunDeadline   time.Duration `mapstructure:"run_deadline"`
	DropThreshold float64       `mapstructure:"drop_threshold"` // percentage, 0–100
	PollEnabled   bool          `mapstructure:"poll_enabled"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
}

// ScraperConfig holds product page fetching configuration
type ScraperConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// SMTPConfig holds watcher email delivery configuration
type SMTPConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	From           string        `mapstructure:"from"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// TelegramConfig holds operator alerting configuration
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds catalog persistence configuration
type StorageConfig struct {
	Backend  string `mapstructure:"backend"` // "postgres" or "file"
	DSN      string `mapstructure:"dsn"`
	FilePath string `mapstructure:"file_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("PRICEWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("runner.batch_size", 5)
	v.SetDefault("runner.run_deadline", "10s")
	v.SetDefault("runner.drop_threshold", 10.0)
	v.SetDefault("runner.poll_enabled", false)
	v.SetDefault("runner.poll_interval", "1h")

	v.SetDefault("scraper.timeout", "30s")
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.retry_delay_base", "1s")

	v.SetDefault("smtp.enabled", false)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.max_retries", 3)
	v.SetDefault("smtp.retry_delay_base", "1s")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.file_path", "./data/catalog.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Runner.BatchSize < 1 {
		return fmt.Errorf("runner.batch_size must be at least 1")
	}
	if c.Runner.RunDeadline < time.Second {
		return fmt.Errorf("runner.run_deadline must be at least 1 second")
	}
	if c.Runner.DropThreshold < 0 || c.Runner.DropThreshold > 100 {
		return fmt.Errorf("runner.drop_threshold must be between 0 and 100")
	}
	if c.Runner.PollEnabled && c.Runner.PollInterval < time.Minute {
		return fmt.Errorf("runner.poll_interval must be at least 1 minute")
	}

	if c.Scraper.Timeout < time.Second {
		return fmt.Errorf("scraper.timeout must be at least 1 second")
	}

	if c.SMTP.Enabled {
		if c.SMTP.Host == "" {
			return fmt.Errorf("smtp.host is required when smtp is enabled")
		}
		if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
			return fmt.Errorf("smtp.port must be a valid port")
		}
		if c.SMTP.From == "" {
			return fmt.Errorf("smtp.from is required when smtp is enabled")
		}
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	switch c.Storage.Backend {
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the postgres backend")
		}
	case "file":
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage.file_path is required for the file backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: postgres, file")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
