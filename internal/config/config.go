// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor
// principles; a .env file in the working directory is read first if present.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Store drivers selected by DATABASE_URL.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ErrUnsupportedDatabaseURL is returned for a DATABASE_URL with an unknown scheme.
var ErrUnsupportedDatabaseURL = errors.New("DATABASE_URL must start with postgres://, postgresql:// or sqlite:")

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Store: postgres://... or sqlite:<path>
	DatabaseURL   string `env:"DATABASE_URL,required"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Cache (Redis). Empty disables caching.
	RedisURL     string        `env:"REDIS_URL"`
	MenuCacheTTL time.Duration `env:"MENU_CACHE_TTL" envDefault:"1m"`
	JWKSCacheTTL time.Duration `env:"JWKS_CACHE_TTL" envDefault:"10m"`

	// Identity provider
	Auth0Domain string `env:"AUTH0_DOMAIN,required"`
	APIAudience string `env:"API_AUDIENCE,required"`
	Algorithms  string `env:"ALGORITHMS" envDefault:"RS256"`
	// Minimum gap between key refreshes triggered by an unknown kid.
	JWKSRefreshInterval time.Duration `env:"JWKS_REFRESH_INTERVAL" envDefault:"5m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetAlgorithms parses the comma-separated ALGORITHMS value.
func (c *Config) GetAlgorithms() []string {
	parts := strings.Split(c.Algorithms, ",")
	result := make([]string, 0, len(parts))

	for _, alg := range parts {
		trimmed := strings.TrimSpace(alg)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// authDomain returns the bare provider host.
func (c *Config) authDomain() string {
	domain := strings.TrimSpace(c.Auth0Domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimRight(domain, "/")
}

// IssuerURL is the expected iss claim, e.g. "https://tenant.auth0.com/".
func (c *Config) IssuerURL() string {
	return "https://" + c.authDomain() + "/"
}

// JWKSURL is the provider's signing-key endpoint.
func (c *Config) JWKSURL() string {
	return c.IssuerURL() + ".well-known/jwks.json"
}

// StoreDriver returns the store driver and its data source.
// For SQLite the source is the file path (or ":memory:").
func (c *Config) StoreDriver() (driver, source string, err error) {
	switch {
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return DriverPostgres, c.DatabaseURL, nil
	case strings.HasPrefix(c.DatabaseURL, "sqlite:"):
		path := strings.TrimPrefix(c.DatabaseURL, "sqlite:")
		path = strings.TrimPrefix(path, "//")
		if path == "" {
			return "", "", fmt.Errorf("%w: missing sqlite path", ErrUnsupportedDatabaseURL)
		}
		return DriverSQLite, path, nil
	default:
		return "", "", ErrUnsupportedDatabaseURL
	}
}

// CacheEnabled reports whether Redis is configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// Load reads an optional .env file, parses environment variables and
// returns a validated Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if _, _, err := c.StoreDriver(); err != nil {
		return err
	}
	if c.authDomain() == "" {
		return errors.New("AUTH0_DOMAIN is empty")
	}
	if len(c.GetAlgorithms()) == 0 {
		return errors.New("ALGORITHMS must list at least one algorithm")
	}
	if c.MaxRequestBodySize <= 0 {
		return errors.New("MAX_REQUEST_BODY_SIZE must be positive")
	}
	return nil
}
