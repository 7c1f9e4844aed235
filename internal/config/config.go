// Package config reads the service settings from the environment, optionally
// seeded from a local .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	// DatabaseURL selects the Postgres store; empty runs in memory.
	DatabaseURL     string
	LogLevel        slog.Level
	LogFormat       string
	DefaultCurrency string
	TaxAutoTransfer bool
	RunMigrations   bool
	DevSeed         bool
	// JWTSecret enables bearer auth on /v1 routes when set.
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// Load reads .env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k string) string { return strings.TrimSpace(getenv(k)) }
	var errList []error
	boolean := func(k string, def bool) bool {
		raw := get(k)
		if raw == "" {
			return def
		}
		switch strings.ToLower(raw) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		errList = append(errList, fmt.Errorf("%s: invalid boolean %q", k, raw))
		return def
	}

	c := Config{
		Port:            get("PORT"),
		DatabaseURL:     get("DATABASE_URL"),
		LogLevel:        ParseLogLevel(get("LOG_LEVEL")),
		LogFormat:       strings.ToLower(get("LOG_FORMAT")),
		DefaultCurrency: strings.ToUpper(get("DEFAULT_CURRENCY")),
		TaxAutoTransfer: boolean("TAX_AUTO_TRANSFER", true),
		RunMigrations:   boolean("RUN_MIGRATIONS", false),
		DevSeed:         boolean("DEV_SEED", false),
		JWTSecret:       get("JWT_HS256_SECRET"),
		JWTIssuer:       get("JWT_ISSUER"),
		JWTAudience:     get("JWT_AUDIENCE"),
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = "RUB"
	}
	errList = append(errList, c.Validate())
	if err := errors.Join(errList...); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errList []error
	if n, err := strconv.Atoi(c.Port); err != nil || n <= 0 || n > 65535 {
		errList = append(errList, fmt.Errorf("PORT: invalid port %q", c.Port))
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errList = append(errList, fmt.Errorf("LOG_FORMAT: want json or text, got %q", c.LogFormat))
	}
	if len(c.DefaultCurrency) != 3 {
		errList = append(errList, fmt.Errorf("DEFAULT_CURRENCY: want an ISO 4217 code, got %q", c.DefaultCurrency))
	}
	if c.RunMigrations && c.DatabaseURL == "" {
		errList = append(errList, errors.New("RUN_MIGRATIONS requires DATABASE_URL"))
	}
	return errors.Join(errList...)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

// ParseLogLevel maps env values to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
