// Package config provides application configuration.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultAllowedPhoneNumbers is the allow-list used when ALLOWED_PHONE_NUMBERS is unset.
var DefaultAllowedPhoneNumbers = []string{
	"77073200049",
	"77759596671",
	"77073352450",
	"77017054477",
	"77775846961",
}

// Config holds all application configuration.
type Config struct {
	Host string `env:"HOST" envDefault:"127.0.0.1"`
	Port string `env:"PORT" envDefault:"8000"`

	Provider  ProviderConfig
	Assistant AssistantConfig
	Webhook   WebhookConfig
	Dedup     DedupConfig
	Poll      PollConfig
	Journal   JournalConfig
	Log       LogConfig

	AllowedPhoneNumbers []string `env:"ALLOWED_PHONE_NUMBERS" envSeparator:","`
	// SendFallback delivers the fallback text to the chat when the assistant fails.
	SendFallback bool `env:"RELAY_SEND_FALLBACK" envDefault:"false"`
	// HTTPClientTimeout bounds outbound calls; zero means no timeout.
	HTTPClientTimeout time.Duration `env:"HTTP_CLIENT_TIMEOUT" envDefault:"0s"`
}

// ProviderConfig configures the Chat2Desk messaging API.
type ProviderConfig struct {
	Token     string `env:"CHAT2DESK_TOKEN"`
	BaseURL   string `env:"CHAT2DESK_BASE_URL" envDefault:"https://api.chat2desk.com/v1"`
	Transport string `env:"CHAT2DESK_TRANSPORT" envDefault:"whatsapp"`
}

// AssistantConfig configures the OpenAI Assistants API.
type AssistantConfig struct {
	APIKey      string `env:"OPENAI_API_KEY"`
	BaseURL     string `env:"OPENAI_BASE_URL"`
	AssistantID string `env:"ASSISTANT_ID"`
}

// WebhookConfig controls webhook subscription reconciliation.
type WebhookConfig struct {
	URL         string `env:"WEBHOOK_URL"`
	Name        string `env:"WEBHOOK_NAME" envDefault:"MyAppWebhook"`
	SyncOnStart bool   `env:"WEBHOOK_SYNC_ON_START" envDefault:"true"`
}

// DedupConfig selects and sizes the processed-message set.
type DedupConfig struct {
	Driver        string `env:"DEDUP_DRIVER" envDefault:"memory"`
	Capacity      int    `env:"DEDUP_CAPACITY" envDefault:"1000"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisKey      string `env:"DEDUP_REDIS_KEY" envDefault:"chatrelay:processed"`
}

// PollConfig bounds the assistant run status poll. Zero limits mean unbounded.
type PollConfig struct {
	Interval    time.Duration `env:"RUN_POLL_INTERVAL" envDefault:"1s"`
	Multiplier  float64       `env:"RUN_POLL_MULTIPLIER" envDefault:"1"`
	MaxInterval time.Duration `env:"RUN_POLL_MAX_INTERVAL" envDefault:"0s"`
	MaxAttempts int           `env:"RUN_POLL_MAX_ATTEMPTS" envDefault:"0"`
	MaxWait     time.Duration `env:"RUN_POLL_MAX_WAIT" envDefault:"0s"`
}

// JournalConfig controls the optional SQLite relay journal.
type JournalConfig struct {
	Path          string        `env:"RELAY_JOURNAL_PATH"`
	Retention     time.Duration `env:"RELAY_JOURNAL_RETENTION" envDefault:"168h"`
	SweepInterval time.Duration `env:"RELAY_JOURNAL_SWEEP_INTERVAL" envDefault:"1h"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.AllowedPhoneNumbers = normalizePhones(cfg.AllowedPhoneNumbers)
	if len(cfg.AllowedPhoneNumbers) == 0 {
		cfg.AllowedPhoneNumbers = append([]string(nil), DefaultAllowedPhoneNumbers...)
	}
	cfg.Dedup.Driver = strings.ToLower(strings.TrimSpace(cfg.Dedup.Driver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Provider.Token == "" {
		return fmt.Errorf("CHAT2DESK_TOKEN is required")
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("CHAT2DESK_BASE_URL cannot be empty")
	}
	if c.Assistant.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Assistant.AssistantID == "" {
		return fmt.Errorf("ASSISTANT_ID is required")
	}
	switch c.Dedup.Driver {
	case "memory", "redis":
	default:
		return fmt.Errorf("DEDUP_DRIVER must be memory or redis, got %q", c.Dedup.Driver)
	}
	if c.Dedup.Capacity <= 0 {
		return fmt.Errorf("DEDUP_CAPACITY must be > 0")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("RUN_POLL_INTERVAL must be > 0")
	}
	if c.Poll.Multiplier < 1 {
		return fmt.Errorf("RUN_POLL_MULTIPLIER must be >= 1")
	}
	if c.Poll.MaxAttempts < 0 || c.Poll.MaxWait < 0 || c.Poll.MaxInterval < 0 {
		return fmt.Errorf("RUN_POLL limits cannot be negative")
	}
	if c.HTTPClientTimeout < 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT cannot be negative")
	}
	if c.Journal.Path != "" {
		if c.Journal.Retention <= 0 {
			return fmt.Errorf("RELAY_JOURNAL_RETENTION must be > 0")
		}
		if c.Journal.SweepInterval <= 0 {
			return fmt.Errorf("RELAY_JOURNAL_SWEEP_INTERVAL must be > 0")
		}
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsDevelopment returns true when the public callback URL is unset or local.
func (c *Config) IsDevelopment() bool {
	return c.Webhook.URL == "" ||
		strings.Contains(c.Webhook.URL, "localhost") ||
		strings.Contains(c.Webhook.URL, "127.0.0.1")
}

// JournalEnabled reports whether relay outcomes are persisted.
func (c *Config) JournalEnabled() bool {
	return c.Journal.Path != ""
}

func normalizePhones(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
