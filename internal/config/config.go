// Package config loads the application and reference-data configuration
// from YAML files with ${ENV_VAR} expansion.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"velora/internal/notify"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		IntervalHours int    `yaml:"interval_hours"`
		Path          string `yaml:"path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	HTTP struct {
		Port int `yaml:"port"`
	} `yaml:"http"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Booking struct {
		MinAdvanceMinutes int `yaml:"min_advance_minutes"`
		MaxAdvanceDays    int `yaml:"max_advance_days"`
	} `yaml:"booking"`

	Payment struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"payment"`

	Voucher struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"voucher"`

	Telegram struct {
		BotToken       string `yaml:"bot_token"`
		OperatorChatID int64  `yaml:"operator_chat_id"`
	} `yaml:"telegram"`

	SMTP notify.SMTPConfig `yaml:"smtp"`

	Sheets struct {
		Enabled         bool   `yaml:"enabled"`
		CredentialsFile string `yaml:"credentials_file"`
		SpreadsheetID   string `yaml:"spreadsheet_id"`
	} `yaml:"sheets"`

	Reminders struct {
		Enabled         bool `yaml:"enabled"`
		LeadMinutes     int  `yaml:"lead_minutes"`
		IntervalMinutes int  `yaml:"interval_minutes"`
	} `yaml:"reminders"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/velora.db"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) BookingMinAdvance() time.Duration {
	if c.Booking.MinAdvanceMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Booking.MinAdvanceMinutes) * time.Minute
}

func (c *Config) BookingMaxAdvance() time.Duration {
	if c.Booking.MaxAdvanceDays <= 0 {
		return 90 * 24 * time.Hour
	}
	return time.Duration(c.Booking.MaxAdvanceDays) * 24 * time.Hour
}

func (c *Config) ReminderLead() time.Duration {
	if c.Reminders.LeadMinutes <= 0 {
		return 2 * time.Hour
	}
	return time.Duration(c.Reminders.LeadMinutes) * time.Minute
}

func (c *Config) ReminderInterval() time.Duration {
	if c.Reminders.IntervalMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Reminders.IntervalMinutes) * time.Minute
}
