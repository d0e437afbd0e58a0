// Package config loads the scanner configuration from a JSON file with
// environment variable overrides. A .env file is loaded first when
// present.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full application configuration.
type Config struct {
	Provider     ProviderConfig     `json:"provider"`
	Scanner      ScannerConfig      `json:"scanner"`
	Lifecycle    LifecycleConfig    `json:"lifecycle"`
	Database     DatabaseConfig     `json:"database"`
	Redis        RedisConfig        `json:"redis"`
	Notification NotificationConfig `json:"notification"`
	Validator    ValidatorConfig    `json:"validator"`
	Server       ServerConfig       `json:"server"`
	Vault        VaultConfig        `json:"vault"`
	Logging      LoggingConfig      `json:"logging"`
}

// ProviderConfig selects and configures the candle data source.
type ProviderConfig struct {
	// MockMode uses simulated data when no data API is available.
	MockMode     bool   `json:"mock_mode"`
	BaseURL      string `json:"base_url"`
	StreamURL    string `json:"stream_url"`
	APIKey       string `json:"api_key"`
	StreamEnable bool   `json:"stream_enable"`
}

type ScannerConfig struct {
	IntervalSeconds int `json:"interval_seconds"`
	WorkerCount     int `json:"worker_count"`
	TimeoutSeconds  int `json:"timeout_seconds"`
	PoolLookback    int `json:"pool_lookback"`
}

type LifecycleConfig struct {
	CooldownMinutes        int `json:"cooldown_minutes"`
	MonitorIntervalSeconds int `json:"monitor_interval_seconds"`
	ExpiryHours            int `json:"expiry_hours"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Addr       string `json:"addr"`
	Password   string `json:"password"`
	DB         int    `json:"db"`
	TTLMinutes int    `json:"ttl_minutes"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

type ValidatorConfig struct {
	Enabled        bool   `json:"enabled"`
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"api_key"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type ServerConfig struct {
	Port         int      `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
}

type VaultConfig struct {
	Address   string `json:"address"`
	Token     string `json:"token"`
	MountPath string `json:"mount_path"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Pretty bool   `json:"pretty"`
}

// Load reads config.json (or CONFIG_PATH), applies defaults and
// environment overrides. A missing file is not an error; defaults and
// the environment carry the configuration.
func Load() (*Config, error) {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg := defaults()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.json"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Provider: ProviderConfig{MockMode: true},
		Scanner: ScannerConfig{
			IntervalSeconds: 60,
			WorkerCount:     4,
			TimeoutSeconds:  300,
			PoolLookback:    100,
		},
		Lifecycle: LifecycleConfig{
			CooldownMinutes:        120,
			MonitorIntervalSeconds: 30,
			ExpiryHours:            4,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "signal_scanner",
			SSLMode:  "disable",
		},
		Redis:   RedisConfig{TTLMinutes: 5},
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "info"},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Provider.BaseURL, "PROVIDER_BASE_URL")
	setString(&cfg.Provider.StreamURL, "PROVIDER_STREAM_URL")
	setString(&cfg.Provider.APIKey, "PROVIDER_API_KEY")
	setBool(&cfg.Provider.MockMode, "PROVIDER_MOCK_MODE")

	setInt(&cfg.Scanner.IntervalSeconds, "SCAN_INTERVAL_SECONDS")
	setInt(&cfg.Scanner.WorkerCount, "SCAN_WORKERS")

	setInt(&cfg.Lifecycle.CooldownMinutes, "SIGNAL_COOLDOWN_MINUTES")
	setInt(&cfg.Lifecycle.ExpiryHours, "EXPIRY_HOURS")

	setBool(&cfg.Database.Enabled, "DB_ENABLED")
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Database, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setBool(&cfg.Notification.Enabled, "NOTIFICATIONS_ENABLED")
	setString(&cfg.Notification.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	setString(&cfg.Notification.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	setString(&cfg.Notification.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")

	setBool(&cfg.Validator.Enabled, "VALIDATOR_ENABLED")
	setString(&cfg.Validator.BaseURL, "VALIDATOR_BASE_URL")
	setString(&cfg.Validator.APIKey, "VALIDATOR_API_KEY")

	setInt(&cfg.Server.Port, "API_PORT")

	setString(&cfg.Vault.Address, "VAULT_ADDR")
	setString(&cfg.Vault.Token, "VAULT_TOKEN")
	setString(&cfg.Vault.MountPath, "VAULT_MOUNT")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setBool(&cfg.Logging.Pretty, "LOG_PRETTY")
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}
