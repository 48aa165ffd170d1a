package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"vcampus/internal/protocol/codec"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" default:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" default:"8080"`
	TCPPort  int `env:"TCP_PORT" default:"8081"`

	// Wire
	Codec        string        `env:"CODEC" default:"json"`
	MaxFrameSize int           `env:"MAX_FRAME_SIZE" default:"1048576"`
	SendTimeout  time.Duration `env:"SEND_TIMEOUT" default:"5s"` // per-reply write deadline

	// Server limits
	RateLimit     float64       `env:"RATE_LIMIT" default:"10"`
	RateBurst     int           `env:"RATE_BURST" default:"20"`
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" default:"2s"`

	// Admin API
	JWTSecret string `env:"JWT_SECRET"` // empty leaves the admin API open

	// Storage
	StoreBackend  string `env:"STORE_BACKEND" default:"memory"`
	RedisURL      string `env:"REDIS_URL" default:"redis://localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SeedData      bool   `env:"SEED_DATA" default:"true"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
	LogFile   string `env:"LOG_FILE"` // empty: log to stderr only
}

const MaxFrameSizeLimit = 64 << 20

// LoadConfig loads configuration from .env (when present) and environment variables.
func LoadConfig() (*Config, error) {
	// a missing .env is fine, system env vars still apply
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	config := &Config{}

	if err := loadEnvString(&config.GoEnv, "GO_ENV", "development"); err != nil {
		return nil, err
	}

	// Ports
	if err := loadEnvInt(&config.HTTPPort, "HTTP_PORT", 8080); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.TCPPort, "TCP_PORT", 8081); err != nil {
		return nil, err
	}

	// Wire
	if err := loadEnvString(&config.Codec, "CODEC", codec.JSONName); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.MaxFrameSize, "MAX_FRAME_SIZE", 1<<20); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.SendTimeout, "SEND_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	// Server limits
	if err := loadEnvFloat(&config.RateLimit, "RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if err := loadEnvInt(&config.RateBurst, "RATE_BURST", 20); err != nil {
		return nil, err
	}
	if err := loadEnvDuration(&config.ShutdownGrace, "SHUTDOWN_GRACE", 2*time.Second); err != nil {
		return nil, err
	}

	// Admin API
	if err := loadEnvString(&config.JWTSecret, "JWT_SECRET", ""); err != nil {
		return nil, err
	}

	// Storage
	if err := loadEnvString(&config.StoreBackend, "STORE_BACKEND", "memory"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisURL, "REDIS_URL", "redis://localhost:6379"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.RedisPassword, "REDIS_PASSWORD", ""); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.DatabaseURL, "DATABASE_URL", ""); err != nil {
		return nil, err
	}
	if err := loadEnvBool(&config.SeedData, "SEED_DATA", true); err != nil {
		return nil, err
	}

	// Logging
	if err := loadEnvString(&config.LogLevel, "LOG_LEVEL", "info"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFormat, "LOG_FORMAT", "text"); err != nil {
		return nil, err
	}
	if err := loadEnvString(&config.LogFile, "LOG_FILE", ""); err != nil {
		return nil, err
	}
	return config, nil
}

// Helper functions for type conversion and validation
func loadEnvString(target *string, key, defaultValue string) error {
	if value := os.Getenv(key); value != "" {
		*target = value
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvInt(target *int, key string, defaultValue int) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvFloat(target *float64, key string, defaultValue float64) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvBool(target *bool, key string, defaultValue bool) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

func loadEnvDuration(target *time.Duration, key string, defaultValue time.Duration) error {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %v", key, err)
		}
		*target = parsed
	} else {
		*target = defaultValue
	}
	return nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errs []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, "HTTP_PORT must be between 1 and 65535")
	}
	if c.TCPPort < 1 || c.TCPPort > 65535 {
		errs = append(errs, "TCP_PORT must be between 1 and 65535")
	}
	if c.HTTPPort == c.TCPPort {
		errs = append(errs, "HTTP_PORT and TCP_PORT must differ")
	}

	if !slices.Contains(codec.Names(), strings.ToLower(c.Codec)) {
		errs = append(errs, fmt.Sprintf("CODEC must be one of: %s", strings.Join(codec.Names(), ", ")))
	}
	if c.MaxFrameSize < 1 || c.MaxFrameSize > MaxFrameSizeLimit {
		errs = append(errs, fmt.Sprintf("MAX_FRAME_SIZE must be between 1 and %d", MaxFrameSizeLimit))
	}
	if c.SendTimeout <= 0 {
		errs = append(errs, "SEND_TIMEOUT must be positive")
	}

	if c.RateLimit <= 0 {
		errs = append(errs, "RATE_LIMIT must be positive")
	}
	if c.RateBurst < 1 {
		errs = append(errs, "RATE_BURST must be at least 1")
	}

	// Validate JWT secret length (should be at least 32 characters for security)
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET should be at least 32 characters long")
	}

	validBackends := []string{"memory", "redis", "postgres", "hybrid"}
	if !slices.Contains(validBackends, c.StoreBackend) {
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be one of: %s", strings.Join(validBackends, ", ")))
	}
	if (c.StoreBackend == "postgres" || c.StoreBackend == "hybrid") && c.DatabaseURL == "" {
		errs = append(errs, "DATABASE_URL is required for the postgres and hybrid backends")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}
	validLogFormats := []string{"text", "json"}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// RedisAddr returns REDIS_URL without its scheme, as go-redis expects.
func (c *Config) RedisAddr() string {
	addr := strings.TrimPrefix(c.RedisURL, "redis://")
	return strings.TrimPrefix(addr, "rediss://")
}

func (c *Config) TCPAddr() string { return fmt.Sprintf(":%d", c.TCPPort) }

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }
