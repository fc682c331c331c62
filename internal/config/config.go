package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/homevista/brokerage/pkg/config"
)

// defaultJWTSecret is only acceptable in development mode.
const defaultJWTSecret = "change-this-to-a-secure-secret"

// Config holds all configuration for the brokerage API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"brokerage"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"brokerage_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"brokerage_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Redis (one-time tokens)
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret                string        `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry          time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry         time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"24h"`
	JWTExtendedRefreshExpiry time.Duration `env:"JWT_EXTENDED_REFRESH_TOKEN_EXPIRY" envDefault:"720h"`

	// Media storage
	MediaRoot    string `env:"MEDIA_ROOT" envDefault:"./media"`
	MediaBaseURL string `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8080/media"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Rate limiting on auth endpoints
	AuthRateLimit int `env:"AUTH_RATE_LIMIT_RPS" envDefault:"10"`
	AuthRateBurst int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"20"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load brokerage config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	// Outside development, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == defaultJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	if cfg.JWTExtendedRefreshExpiry < cfg.JWTRefreshExpiry {
		return nil, fmt.Errorf("extended refresh expiry (%s) must not be shorter than the standard one (%s)",
			cfg.JWTExtendedRefreshExpiry, cfg.JWTRefreshExpiry)
	}

	return cfg, nil
}
