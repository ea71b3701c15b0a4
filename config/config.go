// Package config loads the process-wide configuration: risk limits,
// operating mode, store path, monitoring windows and collaborator settings.
// It is read once at startup and never mutated by the engine.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/tradewheel/swingbot/risk"
)

// Mode selects the broker gateway variant.
type Mode string

const (
	ModeLive    Mode = "live"
	ModeSandbox Mode = "sandbox"
	ModeDryRun  Mode = "dry_run"
)

// Config is the complete invocation configuration.
type Config struct {
	Mode    Mode          `yaml:"mode"`
	Store   StoreConfig   `yaml:"store"`
	Risk    RiskConfig    `yaml:"risk"`
	Monitor MonitorConfig `yaml:"monitor"`
	Alerts  AlertConfig   `yaml:"alerts"`
	Metrics MetricsConfig `yaml:"metrics"`

	// Watchlist is informational for the scanner collaborator; the engine
	// trades whatever signals it is handed.
	Watchlist []string `yaml:"watchlist"`
}

// StoreConfig locates the shared trade store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RiskConfig contains sizing limits.
type RiskConfig struct {
	CapitalPerTrade  float64 `yaml:"capital_per_trade"`
	MaxRiskPct       float64 `yaml:"max_risk_pct"`
	MinRiskReward    float64 `yaml:"min_risk_reward"`
	MaxOrdersPerDay  int     `yaml:"max_orders_per_day"`
	MaxSignalAgeDays int     `yaml:"max_signal_age_days"`
}

// MonitorConfig contains exit-trigger settings for the monitoring loop.
type MonitorConfig struct {
	MaxHoldDays int `yaml:"max_hold_days"`
}

// AlertConfig contains notification settings. Credentials come from the
// environment, never the config file.
type AlertConfig struct {
	TelegramEnabled bool   `yaml:"telegram_enabled"`
	Retries         int    `yaml:"retries"`
	Backoff         string `yaml:"backoff"` // e.g. "2s", "500ms"
}

// ParseBackoff converts the backoff string to a time.Duration.
func (a AlertConfig) ParseBackoff() (time.Duration, error) {
	if a.Backoff == "" {
		return 0, nil
	}
	return time.ParseDuration(a.Backoff)
}

// MetricsConfig points at an optional Pushgateway.
type MetricsConfig struct {
	PushGateway string `yaml:"push_gateway"`
	Job         string `yaml:"job"`
}

// Credentials are the broker and alert secrets, loaded from the environment
// (optionally via a .env file).
type Credentials struct {
	BrokerClientID    string
	BrokerAccessToken string
	TelegramBotToken  string
	TelegramChatID    string
}

// Load reads a YAML config file and validates it. A .env file in the working
// directory is loaded first so credentials resolve from the environment.
func Load(path string) (*Config, error) {
	// Missing .env is fine; real deployments may export vars directly.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// CredentialsFromEnv reads collaborator secrets from the environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		BrokerClientID:    os.Getenv("BROKER_CLIENT_ID"),
		BrokerAccessToken: os.Getenv("BROKER_ACCESS_TOKEN"),
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:    os.Getenv("TELEGRAM_CHAT_ID"),
	}
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeLive, ModeSandbox, ModeDryRun:
	default:
		return fmt.Errorf("mode must be live, sandbox or dry_run (got %q)", c.Mode)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Risk.CapitalPerTrade <= 0 {
		return fmt.Errorf("risk.capital_per_trade must be positive")
	}
	if c.Risk.MaxRiskPct <= 0 || c.Risk.MaxRiskPct > 1 {
		return fmt.Errorf("risk.max_risk_pct must be between 0 and 1")
	}
	if c.Risk.MaxOrdersPerDay < 1 {
		return fmt.Errorf("risk.max_orders_per_day must be at least 1")
	}
	if c.Monitor.MaxHoldDays < 0 {
		return fmt.Errorf("monitor.max_hold_days must not be negative")
	}
	if c.Alerts.Retries < 0 {
		return fmt.Errorf("alerts.retries must not be negative")
	}
	if _, err := c.Alerts.ParseBackoff(); err != nil {
		return fmt.Errorf("alerts.backoff: %w", err)
	}
	return nil
}

// RiskParams converts the file representation into decimal risk parameters.
func (c *Config) RiskParams() risk.Params {
	return risk.Params{
		CapitalPerTrade: decimal.NewFromFloat(c.Risk.CapitalPerTrade),
		MaxRiskPct:      decimal.NewFromFloat(c.Risk.MaxRiskPct),
		MinRiskReward:   decimal.NewFromFloat(c.Risk.MinRiskReward),
		MaxOrdersPerDay: c.Risk.MaxOrdersPerDay,
		MaxSignalAge:    time.Duration(c.Risk.MaxSignalAgeDays) * 24 * time.Hour,
	}
}

// Default returns a configuration with safe defaults: dry-run mode and
// conservative capital and risk limits.
func Default() *Config {
	return &Config{
		Mode:  ModeDryRun,
		Store: StoreConfig{Path: "./swingbot.db"},
		Risk: RiskConfig{
			CapitalPerTrade:  100000,
			MaxRiskPct:       0.02,
			MinRiskReward:    1.5,
			MaxOrdersPerDay:  3,
			MaxSignalAgeDays: 1,
		},
		Monitor: MonitorConfig{MaxHoldDays: 30},
		Alerts: AlertConfig{
			TelegramEnabled: false,
			Retries:         2,
			Backoff:         "2s",
		},
		Metrics: MetricsConfig{Job: "swingbot"},
		Watchlist: []string{
			"RELIANCE", "TCS", "HDFCBANK", "ICICIBANK", "INFY",
			"SBIN", "KOTAKBANK", "ADANIPORTS", "TATASTEEL", "HINDALCO",
		},
	}
}
