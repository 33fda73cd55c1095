package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Polling       PollingConfig       `yaml:"polling"`
	UI            UIConfig            `yaml:"ui"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Log           LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	CORSAllowOrigin string        `yaml:"cors_allow_origin"`
}

// BackendConfig points at the SEO backend REST API.
type BackendConfig struct {
	BaseURL     string            `yaml:"base_url"`
	APIBasePath string            `yaml:"api_base_path"`
	Timeout     time.Duration     `yaml:"timeout"`
	Headers     map[string]string `yaml:"headers"`
}

type PollingConfig struct {
	DashboardInterval time.Duration `yaml:"dashboard_interval"`
	SchedulerInterval time.Duration `yaml:"scheduler_interval"`
}

type UIConfig struct {
	PerPage  int           `yaml:"per_page"`
	Timezone string        `yaml:"timezone"`
	Debounce time.Duration `yaml:"debounce"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c UIConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type NotificationsConfig struct {
	ToastTTL  time.Duration     `yaml:"toast_ttl"`
	MaxToasts int               `yaml:"max_toasts"`
	Slack     SlackNotifyConfig `yaml:"slack"`
}

type SlackNotifyConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// SlogLevel maps the configured level name onto slog.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {

		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}

	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = "http://localhost:8000"
	}
	if c.Backend.APIBasePath == "" {
		c.Backend.APIBasePath = "/api/v1"
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 30 * time.Second
	}

	if c.Polling.DashboardInterval == 0 {
		c.Polling.DashboardInterval = 30 * time.Second
	}
	if c.Polling.SchedulerInterval == 0 {
		c.Polling.SchedulerInterval = 10 * time.Second
	}

	if c.UI.PerPage == 0 {
		c.UI.PerPage = 10
	}
	if c.UI.Timezone == "" {
		c.UI.Timezone = "Europe/Rome"
	}
	if c.UI.Debounce == 0 {
		c.UI.Debounce = 300 * time.Millisecond
	}

	if c.Notifications.ToastTTL == 0 {
		c.Notifications.ToastTTL = 5 * time.Second
	}
	if c.Notifications.MaxToasts == 0 {
		c.Notifications.MaxToasts = 5
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Notifications.Slack.Enabled && c.Notifications.Slack.WebhookURL == "" {
		return fmt.Errorf("notifications.slack.webhook_url is required when slack is enabled")
	}
	return nil
}
