// Package config builds the immutable process configuration.
//
// Sources, highest priority first:
//  1. command-line flags bound to the viper instance
//  2. TSUKI_* environment variables
//  3. a .env file in the working directory (never overrides the real environment)
//  4. defaults
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces every environment variable
const EnvPrefix = "TSUKI"

// MinSessionSecretLength is the shortest accepted cookie signing key
const MinSessionSecretLength = 32

// Keys, shared by flags, environment and tests
const (
	KeyPort                       = "port"
	KeyDatabaseDriver             = "database_driver"
	KeyDatabaseURL                = "database_url"
	KeySessionSecret              = "session_secret"
	KeyHashSalt                   = "hash_salt"
	KeyPublicOrigin               = "public_origin"
	KeyAdminIDs                   = "admin_ids"
	KeyAdminLogins                = "admin_logins"
	KeyDevAuth                    = "dev_auth"
	KeyLogLevel                   = "log_level"
	KeyCookieSecure               = "cookie_secure"
	KeyThrottleRPS                = "throttle_rps"
	KeyThrottleBurst              = "throttle_burst"
	KeyIdempotencyCleanupInterval = "idempotency_cleanup_interval"
	KeyTrustedIPHeader            = "trusted_ip_header"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverMemory   = "memory"
)

// Trusted client-IP sources. Proxy headers are ignored unless one is named.
const (
	TrustedIPNone       = "none"
	TrustedIPCloudflare = "cf"
	TrustedIPForwarded  = "xff"
)

// Config is built once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	Port                       string
	DatabaseDriver             string
	DatabaseURL                string
	SessionSecret              string
	HashSalt                   string
	PublicOrigins              []string
	AdminIDs                   []string
	AdminLogins                []string
	TrustedIPHeader            string
	LogLevel                   slog.Level
	ThrottleRPS                float64
	ThrottleBurst              int
	IdempotencyCleanupInterval time.Duration
	DevAuth                    bool
	CookieSecure               bool
}

// New returns a viper instance with defaults and environment binding applied.
// dotenvFiles are loaded first; missing files are ignored.
func New(dotenvFiles ...string) *viper.Viper {
	if len(dotenvFiles) == 0 {
		dotenvFiles = []string{".env"}
	}
	for _, f := range dotenvFiles {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyDatabaseDriver, DriverSQLite)
	v.SetDefault(KeyDatabaseURL, "file:tsuki.db?_foreign_keys=on")
	v.SetDefault(KeyPublicOrigin, "http://localhost:4321")
	v.SetDefault(KeyDevAuth, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyCookieSecure, true)
	v.SetDefault(KeyThrottleRPS, 5.0)
	v.SetDefault(KeyThrottleBurst, 20)
	v.SetDefault(KeyIdempotencyCleanupInterval, time.Hour)
	v.SetDefault(KeyTrustedIPHeader, TrustedIPNone)
	return v
}

// Load reads and validates the configuration from v
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:                       strings.TrimSpace(v.GetString(KeyPort)),
		DatabaseDriver:             strings.ToLower(strings.TrimSpace(v.GetString(KeyDatabaseDriver))),
		DatabaseURL:                strings.TrimSpace(v.GetString(KeyDatabaseURL)),
		SessionSecret:              v.GetString(KeySessionSecret),
		HashSalt:                   v.GetString(KeyHashSalt),
		PublicOrigins:              splitList(v.GetString(KeyPublicOrigin)),
		AdminIDs:                   splitList(v.GetString(KeyAdminIDs)),
		AdminLogins:                splitList(v.GetString(KeyAdminLogins)),
		DevAuth:                    v.GetBool(KeyDevAuth),
		CookieSecure:               v.GetBool(KeyCookieSecure),
		ThrottleRPS:                v.GetFloat64(KeyThrottleRPS),
		ThrottleBurst:              v.GetInt(KeyThrottleBurst),
		IdempotencyCleanupInterval: v.GetDuration(KeyIdempotencyCleanupInterval),
		TrustedIPHeader:            strings.ToLower(strings.TrimSpace(v.GetString(KeyTrustedIPHeader))),
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("%s is required", KeyPort)
	}

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%s is required for driver %s", KeyDatabaseURL, c.DatabaseDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported %s %q (want %s, %s or %s)",
			KeyDatabaseDriver, c.DatabaseDriver, DriverPostgres, DriverSQLite, DriverMemory)
	}

	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("%s must be at least %d bytes", KeySessionSecret, MinSessionSecretLength)
	}
	if c.HashSalt == "" {
		return fmt.Errorf("%s is required", KeyHashSalt)
	}
	switch c.TrustedIPHeader {
	case TrustedIPNone, TrustedIPCloudflare, TrustedIPForwarded:
	default:
		return fmt.Errorf("unsupported %s %q (want %s, %s or %s)",
			KeyTrustedIPHeader, c.TrustedIPHeader, TrustedIPNone, TrustedIPCloudflare, TrustedIPForwarded)
	}
	if c.ThrottleRPS < 0 || c.ThrottleBurst < 0 {
		return fmt.Errorf("%s and %s must not be negative", KeyThrottleRPS, KeyThrottleBurst)
	}
	return nil
}

// ThrottleEnabled reports whether the HTTP throttle should be mounted
func (c Config) ThrottleEnabled() bool {
	return c.ThrottleRPS > 0 && c.ThrottleBurst > 0
}

// splitList parses a comma-separated value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
