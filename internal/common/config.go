// Package common provides shared utilities for navboard
package common

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for navboard
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Benchmark   BenchmarkConfig `toml:"benchmark"`
	Analytics   AnalyticsConfig `toml:"analytics"`
	Auth        AuthConfig      `toml:"auth"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetReadTimeout parses the read timeout, defaulting to 30s.
func (c *ServerConfig) GetReadTimeout() time.Duration {
	return parseDurationOr(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout parses the write timeout, defaulting to 5m.
func (c *ServerConfig) GetWriteTimeout() time.Duration {
	return parseDurationOr(c.WriteTimeout, 5*time.Minute)
}

// GetIdleTimeout parses the keep-alive idle timeout, defaulting to 60s.
func (c *ServerConfig) GetIdleTimeout() time.Duration {
	return parseDurationOr(c.IdleTimeout, 60*time.Second)
}

// GetShutdownTimeout parses the graceful shutdown limit, defaulting to 10s.
func (c *ServerConfig) GetShutdownTimeout() time.Duration {
	return parseDurationOr(c.ShutdownTimeout, 10*time.Second)
}

// StorageConfig selects and configures the read-model backend.
// Backend is one of "surrealdb", "postgres" or "sqlite".
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Address   string `toml:"address"`   // SurrealDB RPC address (ws://host:8000/rpc)
	Namespace string `toml:"namespace"` // SurrealDB namespace
	Database  string `toml:"database"`  // SurrealDB database
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	DSN       string `toml:"dsn"` // SQL backends: postgres URL or sqlite file path
}

// BenchmarkConfig holds the external benchmark index service configuration.
// An empty BaseURL disables the client; views then fall back to stored benchmark rows.
type BenchmarkConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
	CacheTTL  string `toml:"cache_ttl"`
}

// GetTimeout parses and returns the timeout duration
func (c *BenchmarkConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetCacheTTL parses the cache TTL. Zero disables caching.
func (c *BenchmarkConfig) GetCacheTTL() time.Duration {
	if c.CacheTTL == "" {
		return 0
	}
	d, err := time.ParseDuration(c.CacheTTL)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// AnalyticsConfig holds tunables for the returns & risk engine.
type AnalyticsConfig struct {
	DrawdownLimit        int `toml:"drawdown_limit"`         // number of worst drawdown episodes returned
	StrategyPrefixLength int `toml:"strategy_prefix_length"` // alphabetic prefix length of an account code naming its strategy
}

// AuthConfig holds bearer token validation settings.
// Tokens are issued by the dashboard's auth layer; navboard only verifies them.
type AuthConfig struct {
	JWTSecret           string `toml:"jwt_secret"`
	AllowHeaderIdentity bool   `toml:"allow_header_identity"` // accept X-Navboard-User-ID outside production
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "30s",
			WriteTimeout:    "5m",
			IdleTimeout:     "60s",
			ShutdownTimeout: "10s",
		},
		Storage: StorageConfig{
			Backend:   "sqlite",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "navboard",
			Database:  "navboard",
			Username:  "root",
			Password:  "root",
			DSN:       "data/navboard.db",
		},
		Benchmark: BenchmarkConfig{
			RateLimit: 5,
			Timeout:   "30s",
			CacheTTL:  "15m",
		},
		Analytics: AnalyticsConfig{
			DrawdownLimit:        10,
			StrategyPrefixLength: 3,
		},
		Auth: AuthConfig{
			JWTSecret:           "dev-jwt-secret-change-in-production",
			AllowHeaderIdentity: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("NAVBOARD_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("NAVBOARD_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("NAVBOARD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("NAVBOARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("NAVBOARD_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("NAVBOARD_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("NAVBOARD_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("NAVBOARD_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}
	if v := os.Getenv("NAVBOARD_STORAGE_DSN"); v != "" {
		config.Storage.DSN = v
	}

	// Benchmark overrides
	if v := os.Getenv("NAVBOARD_BENCHMARK_URL"); v != "" {
		config.Benchmark.BaseURL = v
	}
	if v := os.Getenv("NAVBOARD_BENCHMARK_API_KEY"); v != "" {
		config.Benchmark.APIKey = v
	}

	if v := os.Getenv("NAVBOARD_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "surrealdb", "postgres", "sqlite":
	default:
		return fmt.Errorf("invalid storage backend %q (supported: surrealdb, postgres, sqlite)", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Analytics.DrawdownLimit <= 0 {
		c.Analytics.DrawdownLimit = 10
	}
	if c.Analytics.StrategyPrefixLength <= 0 {
		c.Analytics.StrategyPrefixLength = 3
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.IsProduction() && c.Auth.JWTSecret == NewDefaultConfig().Auth.JWTSecret {
		return fmt.Errorf("auth.jwt_secret must be set in production")
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
