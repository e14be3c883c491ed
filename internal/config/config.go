// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot        BotConfig        `mapstructure:"bot"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Program    ProgramConfig    `mapstructure:"program"`
	Withdrawal WithdrawalConfig `mapstructure:"withdrawal"`
	Broadcast  BroadcastConfig  `mapstructure:"broadcast"`
}

// BotConfig holds Telegram bot configuration.
// Username is used to build shareable referral deep links.
// When WebhookURL is set the bot serves a webhook endpoint on Listen
// instead of long-polling.
type BotConfig struct {
	Token      string `mapstructure:"token"`
	Username   string `mapstructure:"username"`
	WebhookURL string `mapstructure:"webhook_url"`
	Listen     string `mapstructure:"listen"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AdminConfig holds admin user configuration.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// ProgramConfig holds the referral program amounts.
// Fee is the flat registration charge a payment screenshot proves;
// Commission is credited to the referrer when that payment is approved.
type ProgramConfig struct {
	Fee        int64  `mapstructure:"fee"`
	Commission int64  `mapstructure:"commission"`
	Currency   string `mapstructure:"currency"`
}

// WithdrawalConfig holds withdrawal eligibility thresholds.
type WithdrawalConfig struct {
	MinReferrals int   `mapstructure:"min_referrals"`
	MinAmount    int64 `mapstructure:"min_amount"`
}

// BroadcastConfig holds bulk messaging parameters. Delay is the pause
// between consecutive sends to respect transport rate limits.
type BroadcastConfig struct {
	Delay time.Duration `mapstructure:"delay"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// ReferralLink builds the shareable deep link for a referral code.
func (b *BotConfig) ReferralLink(code string) string {
	return fmt.Sprintf("https://t.me/%s?start=%s", b.Username, code)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Enable environment variable override
	// Environment variables use underscore separator and uppercase
	// e.g., BOT_TOKEN, DATABASE_HOST, BOT_USERNAME
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional - env vars can provide all config)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we can use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "referralbot")
	v.SetDefault("database.name", "referralbot")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Program defaults
	v.SetDefault("program.fee", 500)
	v.SetDefault("program.commission", 250)
	v.SetDefault("program.currency", "ETB")

	// Withdrawal eligibility defaults
	v.SetDefault("withdrawal.min_referrals", 4)
	v.SetDefault("withdrawal.min_amount", 100)

	// Broadcast pacing default
	v.SetDefault("broadcast.delay", "50ms")

	// Webhook listen default (only used when bot.webhook_url is set)
	v.SetDefault("bot.listen", ":8443")
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}
