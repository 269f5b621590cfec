// Package config handles loading and validating runtime configuration for the Golf Scorekeeper API.
// Configuration values (like the database URL, the token signing secret and the allowed CORS
// origin) are read from environment variables rather than being hardcoded, so the same binary
// can run in development, staging and production by swapping the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	// godotenv reads a .env file and loads its key=value pairs into the process environment.
	// Handy in development; in production the real environment variables are used instead.
	"github.com/joho/godotenv"
	// viper layers defaults under the environment and converts values to typed settings
	// (durations, ints) so we don't hand-roll parsing for every key.
	"github.com/spf13/viper"
)

// devJWTSecret is only used when ENV=development and JWT_SECRET is unset.
const devJWTSecret = "golf-scorekeeper-development-secret"

// Config holds all runtime configuration values for the application.
type Config struct {
	Port           string        // TCP port the HTTP server listens on (e.g. "8080")
	DatabaseURL    string        // PostgreSQL connection string
	JWTSecret      string        // HMAC secret used to sign and verify bearer tokens
	TokenTTL       time.Duration // How long an issued bearer token stays valid
	AllowedOrigin  string        // The single origin allowed by CORS (the SPA's URL)
	Env            string        // "development", "staging" or "production"
	LogLevel       string        // logrus level name: debug, info, warn, error
	StaticDir      string        // Optional directory with the built SPA; served at "/" when set
	MigrateOnStart bool          // Apply pending migrations when the server starts

	// ReferenceDate overrides "today" for tournament status derivation.
	// Nil means the real clock is used.
	ReferenceDate *time.Time
}

// Load reads configuration from the environment (and an optional .env file) and
// returns a populated Config. It does not validate required keys; call Validate
// for commands that need them.
func Load() (*Config, error) {
	// A missing .env file is fine: real environment variables are set by the platform.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("ALLOWED_ORIGIN", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MIGRATE_ON_START", true)

	cfg := &Config{
		Port:           v.GetString("PORT"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		AllowedOrigin:  v.GetString("ALLOWED_ORIGIN"),
		Env:            v.GetString("ENV"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		StaticDir:      v.GetString("STATIC_DIR"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
	}

	if cfg.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.JWTSecret = devJWTSecret
	}

	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("TOKEN_TTL must be a positive duration, got %q", v.GetString("TOKEN_TTL"))
	}

	if raw := strings.TrimSpace(v.GetString("STATUS_REFERENCE_DATE")); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, fmt.Errorf("STATUS_REFERENCE_DATE must be in YYYY-MM-DD format: %w", err)
		}
		cfg.ReferenceDate = &d
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks the keys the server and the migration commands cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return errors.New("missing required configuration: " + strings.Join(missing, ", "))
	}
	return nil
}

// Now returns the function used as "today" for tournament status.
// When ReferenceDate is set every call returns that date.
func (c *Config) Now() func() time.Time {
	if c.ReferenceDate != nil {
		d := *c.ReferenceDate
		return func() time.Time { return d }
	}
	return time.Now
}
