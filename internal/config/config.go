package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	Log      LogConfig
	Auth     AuthConfig
	ZarinPal ZarinPalConfig
	Crypto   CryptoConfig
	Pricing  PricingConfig
	Order    OrderConfig
	Notify   NotifyConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
// In production, set DB_SSLMODE to "require" or "verify-full".
type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"order_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// RedisConfig holds the rate-cache configuration. An empty Addr disables
// the cache; pricing then relies on the configured fallback rate.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:""`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// AuthConfig holds session token configuration.
// WARNING: Default secret is for local development only.
type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET" default:"dev-secret-change-me"` // CHANGE IN PRODUCTION
	TokenTTL  int    `envconfig:"TOKEN_TTL_HOURS" default:"24"`              // hours
}

// ZarinPalConfig holds the fiat payment gateway configuration.
type ZarinPalConfig struct {
	BaseURL     string `envconfig:"ZARINPAL_BASE_URL" default:"https://payment.zarinpal.com"`
	PayURL      string `envconfig:"ZARINPAL_PAY_URL" default:"https://payment.zarinpal.com/pg/StartPay"`
	MerchantID  string `envconfig:"ZARINPAL_MERCHANT_ID" default:""`
	CallbackURL string `envconfig:"ZARINPAL_CALLBACK_URL" default:"http://localhost:3000/api/wallet/deposits/verify"`
	Timeout     int    `envconfig:"ZARINPAL_TIMEOUT" default:"10"` // seconds
}

// CryptoConfig holds the crypto payment processor configuration.
type CryptoConfig struct {
	BaseURL  string `envconfig:"CRYPTO_BASE_URL" default:""`
	APIKey   string `envconfig:"CRYPTO_API_KEY" default:""`
	Currency string `envconfig:"CRYPTO_CURRENCY" default:"USDT"`
	Timeout  int    `envconfig:"CRYPTO_TIMEOUT" default:"10"` // seconds
}

// PricingConfig holds quote normalization policy.
type PricingConfig struct {
	FloorRate    int64 `envconfig:"PRICING_FLOOR_RATE" default:"1"`
	FallbackRate int64 `envconfig:"PRICING_FALLBACK_RATE" default:"0"`
	CacheTTL     int   `envconfig:"PRICING_CACHE_TTL" default:"60"` // seconds
}

// OrderConfig bounds order prices in smallest currency units.
type OrderConfig struct {
	MinPrice int64 `envconfig:"ORDER_MIN_PRICE" default:"1000"`
	MaxPrice int64 `envconfig:"ORDER_MAX_PRICE" default:"1000000000"`
}

// NotifyConfig holds the detached notification executor configuration.
type NotifyConfig struct {
	WebhookURL  string `envconfig:"NOTIFY_WEBHOOK_URL" default:""`
	Workers     int    `envconfig:"NOTIFY_WORKERS" default:"2"`
	QueueSize   int    `envconfig:"NOTIFY_QUEUE_SIZE" default:"256"`
	TaskTimeout int    `envconfig:"NOTIFY_TASK_TIMEOUT" default:"10"` // seconds
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
