// Package config holds the service configuration, loaded from environment
// variables with sane development defaults.
package config

import (
	"fmt"
	"time"

	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/config"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/database"
	"github.com/Devzair-Officiel/ecommerce-api-sub000/pkg/tracing"
)

// Config is the full service configuration.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"commerce-core"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	HTTP     HTTPConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
	Commerce CommerceConfig
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// PostgresConfig holds database settings.
type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"commerce"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"commerce"`
	DBName   string `env:"POSTGRES_DB" envDefault:"commerce"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	MaxConns        int32         `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	MinConns        int32         `env:"POSTGRES_MIN_CONNS" envDefault:"5"`
	MaxConnLifetime time.Duration `env:"POSTGRES_MAX_CONN_LIFETIME" envDefault:"1h"`
	MaxConnIdleTime time.Duration `env:"POSTGRES_MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// RedisConfig holds cart store settings.
type RedisConfig struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// KafkaConfig holds event publishing settings.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	Enabled bool     `env:"KAFKA_ENABLED" envDefault:"true"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool    `env:"TRACING_ENABLED" envDefault:"false"`
	OTLPEndpoint string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate   float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0"`
}

// CommerceConfig holds the business parameters.
type CommerceConfig struct {
	CartTTL time.Duration `env:"CART_TTL" envDefault:"24h"`

	// TaxRateBps is the site-wide VAT rate in basis points (2000 = 20%).
	TaxRateBps int `env:"TAX_RATE_BPS" envDefault:"2000"`

	// ShippingAmount is the flat shipping fee in cents.
	ShippingAmount int64 `env:"SHIPPING_AMOUNT" envDefault:"490"`

	// PriceDriftWarnPercent is the unit-price drift above which cart
	// validation warns, in percent.
	PriceDriftWarnPercent float64 `env:"PRICE_DRIFT_WARN_PERCENT" envDefault:"5"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP_PORT %d", c.HTTP.Port)
	}
	if c.Commerce.CartTTL <= 0 {
		return fmt.Errorf("CART_TTL must be positive, got %s", c.Commerce.CartTTL)
	}
	if c.Commerce.TaxRateBps < 0 || c.Commerce.TaxRateBps > 10000 {
		return fmt.Errorf("TAX_RATE_BPS must be between 0 and 10000, got %d", c.Commerce.TaxRateBps)
	}
	if c.Commerce.ShippingAmount < 0 {
		return fmt.Errorf("SHIPPING_AMOUNT must not be negative, got %d", c.Commerce.ShippingAmount)
	}
	if c.Commerce.PriceDriftWarnPercent < 0 {
		return fmt.Errorf("PRICE_DRIFT_WARN_PERCENT must not be negative, got %g", c.Commerce.PriceDriftWarnPercent)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must be set when Kafka is enabled")
	}
	return nil
}

// PostgresPoolConfig maps the env settings to the database package.
func (c *Config) PostgresPoolConfig() *database.PostgresConfig {
	return &database.PostgresConfig{
		Host:            c.Postgres.Host,
		Port:            c.Postgres.Port,
		User:            c.Postgres.User,
		Password:        c.Postgres.Password,
		DBName:          c.Postgres.DBName,
		SSLMode:         c.Postgres.SSLMode,
		MaxConns:        c.Postgres.MaxConns,
		MinConns:        c.Postgres.MinConns,
		MaxConnLifetime: c.Postgres.MaxConnLifetime,
		MaxConnIdleTime: c.Postgres.MaxConnIdleTime,
	}
}

// RedisClientConfig maps the env settings to the database package.
func (c *Config) RedisClientConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.Redis.Host,
		Port:     c.Redis.Port,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
	}
}

// TracerConfig maps the env settings to the tracing package.
func (c *Config) TracerConfig(version string) tracing.Config {
	return tracing.Config{
		ServiceName:    c.ServiceName,
		ServiceVersion: version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.Tracing.OTLPEndpoint,
		SampleRate:     c.Tracing.SampleRate,
		Enabled:        c.Tracing.Enabled,
	}
}
