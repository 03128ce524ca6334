// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type AppConfig struct {
	// BaseURL is used to construct the provider return/cancel redirects and
	// the buyer-facing success/failure pages. Required outside dev mode.
	BaseURL string `yaml:"base_url"`
	Port    int    `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PayPalConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	WebhookID    string `yaml:"webhook_id"`
	Sandbox      bool   `yaml:"sandbox"`
}

type AuthConfig struct {
	// Secret is the HMAC key shared with the storefront that mints buyer
	// session tokens. Required outside dev mode; without it the checkout API
	// runs unauthenticated.
	Secret       string        `yaml:"secret"`
	CookieDomain string        `yaml:"cookie_domain"`
	TTL          time.Duration `yaml:"ttl"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type SweepConfig struct {
	Interval   time.Duration `yaml:"interval"`    // how often to scan stale pending purchases
	StaleAfter time.Duration `yaml:"stale_after"` // how old a pending purchase must be to retry
}

type WebhookGuardConfig struct {
	RateLimit  int           `yaml:"rate_limit"`  // max deliveries per window per source
	RateWindow time.Duration `yaml:"rate_window"` // sliding window size
}

type Config struct {
	App      AppConfig          `yaml:"app"`
	Log      LogConfig          `yaml:"log"`
	Database DatabaseConfig     `yaml:"database"`
	Redis    RedisConfig        `yaml:"redis"`
	PayPal   PayPalConfig       `yaml:"paypal"`
	Auth     AuthConfig         `yaml:"auth"`
	SMTP     SMTPConfig         `yaml:"smtp"`
	Sweep    SweepConfig        `yaml:"sweep"`
	Webhook  WebhookGuardConfig `yaml:"webhook"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(configPath string, dev bool) (*Config, error) {
	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.App.Port == 0 {
		cfg.App.Port = 8080
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Sweep.StaleAfter <= 0 {
		cfg.Sweep.StaleAfter = 10 * time.Minute
	}
	if cfg.Webhook.RateLimit <= 0 {
		cfg.Webhook.RateLimit = 120
	}
	if cfg.Webhook.RateWindow <= 0 {
		cfg.Webhook.RateWindow = time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Auth.TTL <= 0 {
		cfg.Auth.TTL = 30 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.PayPal.ClientID == "" || cfg.PayPal.ClientSecret == "" {
		return nil, errors.New("paypal.client_id and paypal.client_secret are required")
	}
	if cfg.PayPal.WebhookID == "" {
		return nil, errors.New("paypal.webhook_id is required")
	}
	if cfg.Auth.Secret == "" && !dev {
		return nil, errors.New("auth.secret is required outside dev mode")
	}
	// Without a base URL we cannot build redirect targets; only dev mode may
	// run without one (localhost fallback).
	if cfg.App.BaseURL == "" {
		if !dev {
			return nil, errors.New("app.base_url is required outside dev mode")
		}
		cfg.App.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.App.Port)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
