package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Business BusinessConfig `mapstructure:"business"`
	Health   HealthConfig   `mapstructure:"health"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL             string `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

// GatewayConfig describes the remote recurring-payment gateway.
type GatewayConfig struct {
	BaseURL       string `mapstructure:"GATEWAY_BASE_URL"`
	KeyID         string `mapstructure:"GATEWAY_KEY_ID"`
	KeySecret     string `mapstructure:"GATEWAY_KEY_SECRET"`
	WebhookSecret string `mapstructure:"GATEWAY_WEBHOOK_SECRET"`
	Timeout       string `mapstructure:"GATEWAY_TIMEOUT"`
	CallbackURL   string `mapstructure:"GATEWAY_CALLBACK_URL"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	Currency string `mapstructure:"CURRENCY"`
	// PaymentLinkAttempts bounds reference-id regeneration on collision.
	PaymentLinkAttempts int `mapstructure:"PAYMENT_LINK_ATTEMPTS"`
	// ForeclosePrincipalFallback, when true, falls back to the full principal
	// if the computed foreclosure amount is zero while installments remain.
	ForeclosePrincipalFallback bool   `mapstructure:"FORECLOSE_PRINCIPAL_FALLBACK"`
	WebhookDedupeTTL           string `mapstructure:"WEBHOOK_DEDUPE_TTL"`
	ScheduleCacheTTL           string `mapstructure:"SCHEDULE_CACHE_TTL"`
}

type HealthConfig struct {
	Timeout string `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GATEWAY_TIMEOUT", "10s")
	viper.SetDefault("CURRENCY", "INR")
	viper.SetDefault("PAYMENT_LINK_ATTEMPTS", 3)
	viper.SetDefault("FORECLOSE_PRINCIPAL_FALLBACK", false)
	viper.SetDefault("WEBHOOK_DEDUPE_TTL", "24h")
	viper.SetDefault("SCHEDULE_CACHE_TTL", "1h")
	viper.SetDefault("HEALTH_CHECK_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("GATEWAY_BASE_URL is required")
	}

	if c.Gateway.KeyID == "" || c.Gateway.KeySecret == "" {
		return fmt.Errorf("GATEWAY_KEY_ID and GATEWAY_KEY_SECRET are required")
	}

	if c.Gateway.WebhookSecret == "" {
		return fmt.Errorf("GATEWAY_WEBHOOK_SECRET is required")
	}

	if c.Business.PaymentLinkAttempts <= 0 {
		return fmt.Errorf("PAYMENT_LINK_ATTEMPTS must be greater than 0")
	}

	if _, err := time.ParseDuration(c.Gateway.Timeout); err != nil {
		return fmt.Errorf("GATEWAY_TIMEOUT must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("DATABASE_CONN_MAX_LIFETIME must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Business.WebhookDedupeTTL); err != nil {
		return fmt.Errorf("WEBHOOK_DEDUPE_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Business.ScheduleCacheTTL); err != nil {
		return fmt.Errorf("SCHEDULE_CACHE_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Health.Timeout); err != nil {
		return fmt.Errorf("HEALTH_CHECK_TIMEOUT must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetGatewayTimeout returns the outbound gateway call timeout as duration
func (c *Config) GetGatewayTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Gateway.Timeout)
	return timeout
}

// GetConnMaxLifetime returns the database connection lifetime as duration
func (c *Config) GetConnMaxLifetime() time.Duration {
	lifetime, _ := time.ParseDuration(c.Database.ConnMaxLifetime)
	return lifetime
}

// GetWebhookDedupeTTL returns how long processed webhook event ids are kept
func (c *Config) GetWebhookDedupeTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.WebhookDedupeTTL)
	return ttl
}

// GetScheduleCacheTTL returns the amortization schedule cache lifetime
func (c *Config) GetScheduleCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Business.ScheduleCacheTTL)
	return ttl
}

// GetHealthTimeout returns the health check timeout as duration
func (c *Config) GetHealthTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Health.Timeout)
	return timeout
}
