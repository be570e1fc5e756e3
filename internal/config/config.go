package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	HTTP     HTTPConfig
	Auth     AuthConfig
	Matching MatchingConfig
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Path string // SQLite database file path
}

// HTTPConfig contains HTTP server settings.
type HTTPConfig struct {
	Address   string // listen address (e.g., ":8080")
	RateLimit string // per-client limiter rate, limiter.Rate format (e.g., "100-M")
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// MatchingConfig contains proximity-search settings.
type MatchingConfig struct {
	DefaultRadiusMeters float64 // radius used when the client sends none
	MaxRadiusMeters     float64 // ceiling for client-supplied radii
}

// Load loads configuration from the environment (and .env, if present).
// JWT_SECRET is mandatory.
func Load() (*Config, error) {
	cfg, err := LoadWithDefaults()
	if err != nil {
		return nil, err
	}
	if os.Getenv("JWT_SECRET") == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in
// development. WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Database: DatabaseConfig{
			Path: cast.ToString(getOrReturnDefault("DB_PATH", "orderbuddy.db")),
		},
		HTTP: HTTPConfig{
			Address:   cast.ToString(getOrReturnDefault("HTTP_ADDRESS", ":8080")),
			RateLimit: cast.ToString(getOrReturnDefault("RATE_LIMIT", "120-M")),
		},
		Auth: AuthConfig{
			JWTSecret: cast.ToString(getOrReturnDefault("JWT_SECRET", "dev-secret-change-me")),
			TokenTTL:  cast.ToDuration(getOrReturnDefault("TOKEN_TTL", "72h")),
		},
		Matching: MatchingConfig{
			DefaultRadiusMeters: cast.ToFloat64(getOrReturnDefault("DEFAULT_RADIUS_METERS", 3000)),
			MaxRadiusMeters:     cast.ToFloat64(getOrReturnDefault("MAX_RADIUS_METERS", 50000)),
		},
	}
	if cfg.Auth.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be a positive duration")
	}
	if cfg.Matching.DefaultRadiusMeters <= 0 || cfg.Matching.MaxRadiusMeters < cfg.Matching.DefaultRadiusMeters {
		return nil, fmt.Errorf("invalid radius configuration: default=%v max=%v",
			cfg.Matching.DefaultRadiusMeters, cfg.Matching.MaxRadiusMeters)
	}
	return cfg, nil
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultValue
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s, HTTP: %s, Auth: *** (masked) ***}", c.Database.Path, c.HTTP.Address)
}
