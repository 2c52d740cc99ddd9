// Package config provides configuration management for the meeting scheduler.
// It loads configuration from environment variables with sensible defaults and
// validates it so the application fails at startup instead of on first use.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - BASE_URL: Public base URL of the service (default: http://localhost:8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - LOG_FILE: Log file path, stdout when empty
//   - HTTP_TIMEOUT: Timeout for outbound HTTP calls (default: 30s)
//   - TIMEZONE: IANA zone used for working-hours day boundaries (default: UTC)
//
// OAuth2 Client:
//   - GOOGLE_CLIENT_SECRET_FILE: Client secret JSON downloaded from the provider console
//     (default: ./client_secret.json)
//   - OAUTH_REDIRECT_URL: Overrides the redirect URI (default: BASE_URL + /oauth/callback)
//   - REFRESH_BUFFER: Refresh access tokens this long before expiry (default: 5m)
//   - REFRESH_SWEEP_SCHEDULE: Cron spec for the background refresh of stored credentials,
//     or "off" (default: @every 5m)
//
// Caller Authentication:
//   - AUTH_JWT_SECRET: HMAC key for bearer tokens; the sub claim is the user id (required,
//     at least 32 bytes)
//   - AUTH_JWT_ISSUER: Expected iss claim, unchecked when empty
//
// Token Store:
//   - TOKEN_STORE_TYPE: file, sqlite, postgres, redis or memory (default: file)
//   - TOKEN_STORE_PATH: JSON file for the file store (default: ./tokens.json)
//   - DATABASE_PATH: SQLite database file path (default: ./meeting_scheduler.db)
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_DB, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_SSL_MODE: PostgreSQL connection settings
//   - REDIS_ADDRESS, REDIS_PASSWORD, REDIS_DB: Redis connection settings
//
// Availability:
//   - CALENDAR_IDS: Comma separated calendar ids queried for free/busy (default: primary)
//   - ICS_FEED_URL: Optional iCalendar feed shared by every user, such as company holidays
//     or office closures. Its events are busy time for everyone; per-user calendars come
//     from CALENDAR_IDS through each user's own authorization.
//   - ICS_MAX_BYTES: Largest ICS feed body accepted (default: 10485760)
//   - WORKING_HOURS_START / WORKING_HOURS_END: Default working-hours window (default: 9 / 17)
//   - SLOT_MAX_RESULTS: Maximum slots returned (default: 10)
//   - SLOT_MAX_ITERATIONS: Maximum cursor positions evaluated per search (default: 20)
//   - SLOT_STEP: Cursor advance after an accepted slot (default: 15m)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"meeting-scheduler/internal/common/errors"
	"meeting-scheduler/internal/common/validation"
	"meeting-scheduler/internal/redis"
	"meeting-scheduler/internal/storage"
	"meeting-scheduler/internal/storage/postgres"
	"meeting-scheduler/internal/storage/sqlite"

	"github.com/robfig/cron/v3"
)

// MinJWTSecretLength is the shortest accepted AUTH_JWT_SECRET
const MinJWTSecretLength = 32

// Config holds all configuration values for the meeting scheduler.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port        string
	BaseURL     string
	LogLevel    string
	LogFile     string
	HTTPTimeout time.Duration
	Timezone    string

	// OAuth2 client
	ClientSecretFile string
	RedirectURL      string
	RefreshBuffer    time.Duration

	// Background refresh of every stored credential
	RefreshSweepSchedule string

	// Caller authentication
	JWTSecret string
	JWTIssuer string

	// Token store
	TokenStoreType   string
	TokenStorePath   string
	DatabasePath     string
	PostgresHost     string
	PostgresPort     int
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string
	PostgresSSLMode  string
	RedisAddress     string
	RedisPassword    string
	RedisDB          int

	// Availability
	CalendarIDs       []string
	ICSFeedURL        string
	ICSMaxBytes       int64
	WorkingHoursStart int
	WorkingHoursEnd   int
	SlotMaxResults    int
	SlotMaxIterations int
	SlotStep          time.Duration

	// parse failures collected by Load and reported by Validate
	loadErrors []string
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
// Values that fail to parse are reported by Validate.
func Load() *Config {
	c := &Config{}

	c.Port = getEnv("PORT", "8080")
	c.BaseURL = strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:8080"), "/")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFile = getEnv("LOG_FILE", "")
	c.HTTPTimeout = c.getDurationEnv("HTTP_TIMEOUT", 30*time.Second)
	c.Timezone = getEnv("TIMEZONE", "UTC")

	c.ClientSecretFile = getEnv("GOOGLE_CLIENT_SECRET_FILE", "./client_secret.json")
	c.RedirectURL = getEnv("OAUTH_REDIRECT_URL", c.BaseURL+"/oauth/callback")
	c.RefreshBuffer = c.getDurationEnv("REFRESH_BUFFER", 5*time.Minute)
	c.RefreshSweepSchedule = getEnv("REFRESH_SWEEP_SCHEDULE", "@every 5m")

	c.JWTSecret = getEnv("AUTH_JWT_SECRET", "")
	c.JWTIssuer = getEnv("AUTH_JWT_ISSUER", "")

	c.TokenStoreType = strings.ToLower(getEnv("TOKEN_STORE_TYPE", storage.TypeFile))
	c.TokenStorePath = getEnv("TOKEN_STORE_PATH", "./tokens.json")
	c.DatabasePath = getEnv("DATABASE_PATH", "./meeting_scheduler.db")
	c.PostgresHost = getEnv("POSTGRES_HOST", "localhost")
	c.PostgresPort = c.getIntEnv("POSTGRES_PORT", 5432)
	c.PostgresDB = getEnv("POSTGRES_DB", "meeting_scheduler")
	c.PostgresUser = getEnv("POSTGRES_USER", "postgres")
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", "")
	c.PostgresSSLMode = getEnv("POSTGRES_SSL_MODE", "disable")
	c.RedisAddress = getEnv("REDIS_ADDRESS", "localhost:6379")
	c.RedisPassword = getEnv("REDIS_PASSWORD", "")
	c.RedisDB = c.getIntEnv("REDIS_DB", 0)

	c.CalendarIDs = splitList(getEnv("CALENDAR_IDS", "primary"))
	c.ICSFeedURL = getEnv("ICS_FEED_URL", "")
	c.ICSMaxBytes = int64(c.getIntEnv("ICS_MAX_BYTES", 10<<20))
	c.WorkingHoursStart = c.getIntEnv("WORKING_HOURS_START", 9)
	c.WorkingHoursEnd = c.getIntEnv("WORKING_HOURS_END", 17)
	c.SlotMaxResults = c.getIntEnv("SLOT_MAX_RESULTS", 10)
	c.SlotMaxIterations = c.getIntEnv("SLOT_MAX_ITERATIONS", 20)
	c.SlotStep = c.getDurationEnv("SLOT_STEP", 15*time.Minute)

	return c
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *Config) getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		c.loadErrors = append(c.loadErrors, fmt.Sprintf("%s must be an integer", key))
		return defaultValue
	}
	return parsed
}

func (c *Config) getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		c.loadErrors = append(c.loadErrors, fmt.Sprintf("%s must be a valid duration (e.g. '30s', '5m')", key))
		return defaultValue
	}
	return parsed
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate performs validation on the configuration to ensure all required
// fields are present and all values are valid. Every failure is a config error.
func (c *Config) Validate() error {
	if len(c.loadErrors) > 0 {
		return errors.ConfigError(c.loadErrors[0])
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return errors.ConfigError("PORT must be a valid port number between 1 and 65535")
	}

	if u, err := url.Parse(c.RedirectURL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.ConfigError("OAUTH_REDIRECT_URL must be an absolute URL")
	}

	if c.ClientSecretFile == "" {
		return errors.ConfigError("GOOGLE_CLIENT_SECRET_FILE is required")
	}

	if c.HTTPTimeout <= 0 {
		return errors.ConfigError("HTTP_TIMEOUT must be positive")
	}
	if c.RefreshBuffer <= 0 {
		return errors.ConfigError("REFRESH_BUFFER must be positive")
	}

	if len(c.JWTSecret) < MinJWTSecretLength {
		return errors.ConfigError(fmt.Sprintf("AUTH_JWT_SECRET is required and must be at least %d bytes", MinJWTSecretLength))
	}

	if c.SweepEnabled() {
		if _, err := cron.ParseStandard(c.RefreshSweepSchedule); err != nil {
			return errors.ConfigError(fmt.Sprintf("REFRESH_SWEEP_SCHEDULE is not a valid cron spec: %v", err))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return errors.ConfigError(fmt.Sprintf("TIMEZONE is not a known time zone: %s", c.Timezone))
	}

	switch c.TokenStoreType {
	case storage.TypeFile:
		if c.TokenStorePath == "" {
			return errors.ConfigError("TOKEN_STORE_PATH is required when using the file token store")
		}
	case storage.TypeSQLite:
		if c.DatabasePath == "" {
			return errors.ConfigError("DATABASE_PATH is required when using SQLite")
		}
	case storage.TypePostgres:
		if c.PostgresHost == "" {
			return errors.ConfigError("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return errors.ConfigError("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return errors.ConfigError("POSTGRES_USER is required when using PostgreSQL")
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return errors.ConfigError("POSTGRES_PORT must be a valid port number")
		}
	case storage.TypeRedis:
		if c.RedisAddress == "" {
			return errors.ConfigError("REDIS_ADDRESS is required when using Redis")
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			return errors.ConfigError("REDIS_DB must be a number between 0 and 15")
		}
	case storage.TypeMemory:
	default:
		return errors.ConfigError(fmt.Sprintf("TOKEN_STORE_TYPE must be one of %s", strings.Join(storage.Types, ", ")))
	}

	v := validation.NewValidator().
		RequireRange(c.WorkingHoursStart, 0, 23, "WORKING_HOURS_START").
		RequireRange(c.WorkingHoursEnd, c.WorkingHoursStart+1, 24, "WORKING_HOURS_END").
		RequirePositive(c.SlotMaxResults, "SLOT_MAX_RESULTS").
		RequirePositive(c.SlotMaxIterations, "SLOT_MAX_ITERATIONS").
		Validate(func() error {
			if c.ICSMaxBytes <= 0 {
				return fmt.Errorf("ICS_MAX_BYTES must be positive")
			}
			return nil
		}).
		Validate(func() error {
			if c.SlotStep <= 0 {
				return fmt.Errorf("SLOT_STEP must be positive")
			}
			return nil
		})
	if c.ICSFeedURL != "" {
		v.RequireURL(c.ICSFeedURL, "ICS_FEED_URL")
	}
	if err := v.Error(); err != nil {
		return errors.ConfigError(err.Error())
	}

	return nil
}

// SweepEnabled reports whether stored credentials are refreshed in the background
func (c *Config) SweepEnabled() bool {
	return c.RefreshSweepSchedule != "" && !strings.EqualFold(c.RefreshSweepSchedule, "off")
}

// Location returns the configured time zone, UTC if it cannot be loaded
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// StorageConfig returns the token store settings for storage.NewBackend
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Type:     c.TokenStoreType,
		FilePath: c.TokenStorePath,
		SQLite: sqlite.Config{
			DatabasePath: c.DatabasePath,
		},
		Postgres: postgres.Config{
			Host:     c.PostgresHost,
			Port:     c.PostgresPort,
			Database: c.PostgresDB,
			Username: c.PostgresUser,
			Password: c.PostgresPassword,
			SSLMode:  c.PostgresSSLMode,
		},
		Redis: redis.Config{
			Address:  c.RedisAddress,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
	}
}
