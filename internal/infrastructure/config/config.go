package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Settlement SettlementConfig
	Mpesa      MpesaConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings for the dedup fast path
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	DedupTTL time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxBodySize    int64
	AllowedPeers   []string // Source IPs allowed to deliver callbacks; empty allows all
	TrustedProxies []string
}

// SettlementConfig holds the business ceilings and the business-day zone.
// Ceilings of zero disable the respective rule.
type SettlementConfig struct {
	MaxTransactionAmount float64
	MaxDailyAmount       float64
	Timezone             string

	// SaleCompletionURL is the upstream sales system endpoint notified
	// when an invoice linked to a sale is paid in full. Empty disables
	// the notification.
	SaleCompletionURL string
}

// MpesaConfig holds Daraja gateway client settings
type MpesaConfig struct {
	BaseURL          string
	ConsumerKey      string
	ConsumerSecret   string
	ShortCode        string
	ValidationURL    string
	ConfirmationURL  string
	TokenStaleWindow time.Duration // Refresh the credential this long before expiry
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PESAFLOW_ prefix (e.g., PESAFLOW_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine, defaults and env vars apply
	}

	v.SetEnvPrefix("PESAFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			DedupTTL: v.GetDuration("redis.dedup_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			AllowedPeers:   v.GetStringSlice("http.allowed_peers"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Settlement: SettlementConfig{
			MaxTransactionAmount: v.GetFloat64("settlement.max_transaction_amount"),
			MaxDailyAmount:       v.GetFloat64("settlement.max_daily_amount"),
			Timezone:             v.GetString("settlement.timezone"),
			SaleCompletionURL:    v.GetString("settlement.sale_completion_url"),
		},
		Mpesa: MpesaConfig{
			BaseURL:          v.GetString("mpesa.base_url"),
			ConsumerKey:      v.GetString("mpesa.consumer_key"),
			ConsumerSecret:   v.GetString("mpesa.consumer_secret"),
			ShortCode:        v.GetString("mpesa.short_code"),
			ValidationURL:    v.GetString("mpesa.validation_url"),
			ConfirmationURL:  v.GetString("mpesa.confirmation_url"),
			TokenStaleWindow: v.GetDuration("mpesa.token_stale_window"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "pesaflow")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pesaflow")
	v.SetDefault("database.dbname", "pesaflow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.conn_max_idle_time", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.dedup_ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 15*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.max_body_size", int64(1<<20))

	v.SetDefault("settlement.max_transaction_amount", 250000.0)
	v.SetDefault("settlement.max_daily_amount", 500000.0)
	v.SetDefault("settlement.timezone", "Africa/Nairobi")

	v.SetDefault("mpesa.base_url", "https://sandbox.safaricom.co.ke")
	v.SetDefault("mpesa.token_stale_window", 2*time.Minute)
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Settlement.MaxTransactionAmount < 0 {
		return fmt.Errorf("settlement.max_transaction_amount cannot be negative")
	}
	if c.Settlement.MaxDailyAmount < 0 {
		return fmt.Errorf("settlement.max_daily_amount cannot be negative")
	}
	if c.Settlement.MaxDailyAmount > 0 && c.Settlement.MaxTransactionAmount > c.Settlement.MaxDailyAmount {
		return fmt.Errorf("settlement.max_transaction_amount cannot exceed settlement.max_daily_amount")
	}
	if _, err := time.LoadLocation(c.Settlement.Timezone); err != nil {
		return fmt.Errorf("invalid settlement.timezone %q: %w", c.Settlement.Timezone, err)
	}
	return nil
}

// MaxTransactionLimit returns the per-transaction ceiling as a decimal
func (c *SettlementConfig) MaxTransactionLimit() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxTransactionAmount)
}

// MaxDailyLimit returns the per-customer daily ceiling as a decimal
func (c *SettlementConfig) MaxDailyLimit() decimal.Decimal {
	return decimal.NewFromFloat(c.MaxDailyAmount)
}

// Location resolves the configured business-day timezone
func (c *SettlementConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Addr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
