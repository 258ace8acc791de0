// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/bosswatch and cmd/bossctl.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/albapepper/bosswatch/internal/clock"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// --------------------------------------------------------------------------
// Config is populated from environment variables.
// --------------------------------------------------------------------------

type Config struct {
	// Store
	StoreDriver    string
	DatabaseURL    string
	SQLitePath     string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration
	AutoMigrate    bool

	// Chat bot
	BotToken   string
	AdminsFile string

	// Time
	Timezone string

	// Scheduler
	TickInterval          time.Duration
	TickFirstDelay        time.Duration
	GraceWindow           time.Duration
	DispatchTimeout       time.Duration
	DispatchConcurrency   int
	RestartAnnounceWithin time.Duration

	// Ledger
	LedgerRetention     time.Duration
	LedgerPruneInterval time.Duration

	// API server
	APIEnabled    bool
	APIHost       string
	APIPort       int
	AdminAPIToken string
	Environment   string // development, staging, production
	LogLevel      slog.Level

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Change notifications (postgres only)
	ListenEnabled bool

	// Cache
	CacheEnabled bool

	// Seeding and backups
	CatalogFile string
	BackupDir   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StoreDriver:    strings.ToLower(envOr("STORE_DRIVER", DriverPostgres)),
		DatabaseURL:    envOr("DATABASE_URL", ""),
		SQLitePath:     envOr("SQLITE_PATH", "bosswatch.db"),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 5),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,
		AutoMigrate:    envBool("AUTO_MIGRATE", true),

		BotToken:   envOr("TELEGRAM_BOT_TOKEN", envOr("BOT_TOKEN", "")),
		AdminsFile: envOr("ADMINS_FILE", "admins.txt"),

		Timezone: envOr("TIMEZONE", clock.DefaultTimezone),

		TickInterval:          envSeconds("TICK_INTERVAL_SECONDS", 60),
		TickFirstDelay:        envSeconds("TICK_FIRST_DELAY_SECONDS", 10),
		GraceWindow:           envSeconds("GRACE_WINDOW_SECONDS", 120),
		DispatchTimeout:       envSeconds("DISPATCH_TIMEOUT_SECONDS", 10),
		DispatchConcurrency:   envInt("DISPATCH_CONCURRENCY", 8),
		RestartAnnounceWithin: time.Duration(envInt("RESTART_ANNOUNCE_MAX_FIRST_MINUTES", 5)) * time.Minute,

		LedgerRetention:     time.Duration(envInt("LEDGER_RETENTION_HOURS", 48)) * time.Hour,
		LedgerPruneInterval: time.Duration(envInt("LEDGER_PRUNE_INTERVAL_MINUTES", 30)) * time.Minute,

		APIEnabled:    envBool("API_ENABLED", true),
		APIHost:       envOr("API_HOST", "0.0.0.0"),
		APIPort:       envInt("API_PORT", envInt("PORT", 8000)),
		AdminAPIToken: envOr("ADMIN_API_TOKEN", ""),
		Environment:   envOr("ENVIRONMENT", "development"),
		LogLevel:      envLevel("LOG_LEVEL", slog.LevelInfo),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   envSeconds("RATE_LIMIT_WINDOW", 60),

		ListenEnabled: envBool("LISTEN_ENABLED", true),
		CacheEnabled:  envBool("CACHE_ENABLED", true),
		CatalogFile:   envOr("CATALOG_FILE", "bosses.yaml"),
		BackupDir:     envOr("BACKUP_DIR", "backups"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORE_DRIVER=postgres")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set when STORE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want postgres or sqlite)", c.StoreDriver)
	}

	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL_SECONDS must be positive")
	}
	// Alerts fire inside a ±1 minute band; with a slower tick an occurrence
	// can fall between two ticks and be skipped.
	if c.TickInterval > time.Minute {
		return fmt.Errorf("TICK_INTERVAL_SECONDS must be at most 60, got %s", c.TickInterval)
	}
	if c.GraceWindow < 2*c.TickInterval {
		return fmt.Errorf("GRACE_WINDOW_SECONDS (%s) must be at least twice the tick interval (%s)", c.GraceWindow, c.TickInterval)
	}
	if c.DispatchTimeout <= 0 || c.DispatchTimeout >= c.TickInterval {
		return fmt.Errorf("DISPATCH_TIMEOUT_SECONDS (%s) must be positive and below the tick interval (%s)", c.DispatchTimeout, c.TickInterval)
	}
	if c.DispatchConcurrency <= 0 {
		return fmt.Errorf("DISPATCH_CONCURRENCY must be positive")
	}
	if c.TickFirstDelay < 0 {
		return fmt.Errorf("TICK_FIRST_DELAY_SECONDS must not be negative")
	}
	if _, err := clock.LoadZone(c.Timezone); err != nil {
		return err
	}
	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Zone loads the configured timezone. Validate has already checked it.
func (c *Config) Zone() (*clock.Zone, error) {
	return clock.LoadZone(c.Timezone)
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envLevel(key string, fallback slog.Level) slog.Level {
	if v := os.Getenv(key); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			return lvl
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
