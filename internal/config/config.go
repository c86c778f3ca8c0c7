// Package config provides configuration management for the Mini Market server.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Session token modes.
const (
	TokenModeOpaque = "opaque"
	TokenModeJWT    = "jwt"
)

// Password hashers.
const (
	HasherBcrypt = "bcrypt"
	HasherPBKDF2 = "pbkdf2"
)

// Cart lock modes.
const (
	LockModeAuto = "auto"
	LockModeNone = "none"
)

// MinPBKDF2Iterations is the lowest accepted PBKDF2 work factor.
const MinPBKDF2Iterations = 100_000

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Cart     CartConfig     `mapstructure:"cart"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Contact  ContactConfig  `mapstructure:"contact"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`

	// CORSAllowedOrigins lists origins allowed to call the API from a browser.
	// "*" allows any origin.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	// LegacyRoutes enables the /api/cart/legacy and POST /api/cart compatibility routes.
	LegacyRoutes bool `mapstructure:"legacy_routes"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds storage backend settings.
// Supports an in-process store, SQLite and PostgreSQL.
type DatabaseConfig struct {
	// Driver is one of "memory", "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`

	// PostgreSQL settings (used when Driver is "postgres")
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`

	// SQLite settings (used when Driver is "sqlite")
	Path            string `mapstructure:"path"`
	JournalMode     string `mapstructure:"journal_mode"`
	BusyTimeout     int    `mapstructure:"busy_timeout"` // milliseconds
	SynchronousMode string `mapstructure:"synchronous_mode"`
}

// DSN returns the PostgreSQL connection string.
// Only valid when Driver is "postgres".
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// IsEmbedded returns true if the store lives inside the server process.
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == DriverSQLite || c.Driver == DriverMemory
}

// RedisConfig holds Redis connection settings.
// When enabled, sessions and cart locks are shared through Redis.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds credential and session settings.
type AuthConfig struct {
	// TokenMode selects "opaque" (server-side, revocable) or "jwt" (signed, stateless) sessions.
	TokenMode string `mapstructure:"token_mode"`

	// TokenTTL is how long an issued session stays valid.
	TokenTTL time.Duration `mapstructure:"token_ttl"`

	// JWTSecret signs HS256 tokens. Required in jwt mode, at least 32 bytes.
	JWTSecret string `mapstructure:"jwt_secret"`

	// JWTIssuer is written to the iss claim.
	JWTIssuer string `mapstructure:"jwt_issuer"`

	// PasswordHasher selects "bcrypt" or "pbkdf2".
	PasswordHasher string `mapstructure:"password_hasher"`

	// BcryptCost is the bcrypt work factor.
	BcryptCost int `mapstructure:"bcrypt_cost"`

	// PBKDF2Iterations is the PBKDF2-HMAC-SHA256 iteration count.
	PBKDF2Iterations int `mapstructure:"pbkdf2_iterations"`
}

// CartConfig holds cart engine settings.
type CartConfig struct {
	// LockMode is "auto" (Redis when enabled, otherwise in-process) or "none",
	// which relies on the storage backend's atomic upsert alone.
	LockMode string `mapstructure:"lock_mode"`

	// LockTTL bounds how long a cart mutation may hold the per-user lock.
	LockTTL time.Duration `mapstructure:"lock_ttl"`

	// LockRetries is how many extra attempts are made to take a busy lock.
	LockRetries int `mapstructure:"lock_retries"`

	// LockRetryDelay is the pause between attempts.
	LockRetryDelay time.Duration `mapstructure:"lock_retry_delay"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if the metrics endpoint is mounted.
	Enabled bool `mapstructure:"enabled"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// ContactConfig holds contact form delivery settings.
type ContactConfig struct {
	// SendGridAPIKey enables email delivery through SendGrid when set.
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromEmail      string `mapstructure:"from_email"`
	ToEmail        string `mapstructure:"to_email"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with MINIMARKET_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("MINIMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/minimarket")
	}

	// Config file is optional - environment variables can be used instead.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_body_size", 1<<20) // 1MB
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.legacy_routes", true)

	// Database defaults
	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "minimarket")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "minimarket")
	v.SetDefault("database.ssl_mode", "prefer")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	// SQLite defaults
	v.SetDefault("database.path", "./data/minimarket.db")
	v.SetDefault("database.journal_mode", "WAL")
	v.SetDefault("database.busy_timeout", 5000)
	v.SetDefault("database.synchronous_mode", "NORMAL")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Auth defaults
	v.SetDefault("auth.token_mode", TokenModeOpaque)
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "minimarket")
	v.SetDefault("auth.password_hasher", HasherBcrypt)
	v.SetDefault("auth.bcrypt_cost", 12)
	v.SetDefault("auth.pbkdf2_iterations", 120_000)

	// Cart defaults
	v.SetDefault("cart.lock_mode", LockModeAuto)
	v.SetDefault("cart.lock_ttl", 10*time.Second)
	v.SetDefault("cart.lock_retries", 200)
	v.SetDefault("cart.lock_retry_delay", 10*time.Millisecond)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Contact defaults
	v.SetDefault("contact.sendgrid_api_key", "")
	v.SetDefault("contact.from_email", "noreply@minimarket.local")
	v.SetDefault("contact.to_email", "support@minimarket.local")
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	switch c.Database.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database.host is required for postgres driver")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database.user is required for postgres driver")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required for postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be 'memory', 'sqlite' or 'postgres'")
	}

	if c.Redis.Enabled && (c.Redis.Port < 1 || c.Redis.Port > 65535) {
		return fmt.Errorf("redis.port must be between 1 and 65535")
	}

	switch c.Auth.TokenMode {
	case TokenModeOpaque:
	case TokenModeJWT:
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 bytes in jwt mode")
		}
	default:
		return fmt.Errorf("auth.token_mode must be 'opaque' or 'jwt'")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}

	switch c.Auth.PasswordHasher {
	case HasherBcrypt:
		if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 31 {
			return fmt.Errorf("auth.bcrypt_cost must be between 10 and 31")
		}
	case HasherPBKDF2:
		if c.Auth.PBKDF2Iterations < MinPBKDF2Iterations {
			return fmt.Errorf("auth.pbkdf2_iterations must be at least %d", MinPBKDF2Iterations)
		}
	default:
		return fmt.Errorf("auth.password_hasher must be 'bcrypt' or 'pbkdf2'")
	}

	if c.Cart.LockMode != LockModeAuto && c.Cart.LockMode != LockModeNone {
		return fmt.Errorf("cart.lock_mode must be 'auto' or 'none'")
	}
	if c.Cart.LockTTL <= 0 {
		return fmt.Errorf("cart.lock_ttl must be positive")
	}
	if c.Cart.LockRetries < 0 {
		return fmt.Errorf("cart.lock_retries must not be negative")
	}

	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
