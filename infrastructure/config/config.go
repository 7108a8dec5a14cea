package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Addr          string
	SQLitePath    string
	MigrationsDir string

	// ReferenceTZ decides where a calendar day starts for "today" and date ranges.
	ReferenceTZ *time.Location

	AllocateMaxAttempts int

	RedisAddr      string
	IdempotencyTTL time.Duration

	CookieSecure bool

	Log     LogConfig
	Archive ArchiveConfig
}

type LogConfig struct {
	Level  string
	Format string
	File   string
}

// ArchiveConfig selects where served exports are copied. Driver is none, fs or s3.
type ArchiveConfig struct {
	Driver      string
	FSRoot      string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads the configuration through lookup, which returns "" for unset keys.
func LoadFrom(lookup func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Addr:          get("APP_ADDR", ":8080"),
		SQLitePath:    get("SQLITE_PATH", "batchledger.db"),
		MigrationsDir: get("MIGRATIONS_DIR", ""),
		RedisAddr:     get("REDIS_ADDR", ""),
		CookieSecure:  strings.EqualFold(get("COOKIE_SECURE", "false"), "true"),
		Log: LogConfig{
			Level:  get("LOG_LEVEL", "info"),
			Format: get("LOG_FORMAT", "text"),
			File:   get("LOG_FILE", ""),
		},
		Archive: ArchiveConfig{
			Driver:      strings.ToLower(get("EXPORT_ARCHIVE_DRIVER", "none")),
			FSRoot:      get("EXPORT_ARCHIVE_FS_ROOT", "./export-archive"),
			S3Bucket:    get("EXPORT_ARCHIVE_S3_BUCKET", ""),
			S3Region:    get("EXPORT_ARCHIVE_S3_REGION", "us-east-1"),
			S3Endpoint:  get("EXPORT_ARCHIVE_S3_ENDPOINT", ""),
			S3PathStyle: strings.EqualFold(get("EXPORT_ARCHIVE_S3_PATH_STYLE", "false"), "true"),
		},
	}

	loc, err := time.LoadLocation(get("REFERENCE_TZ", "UTC"))
	if err != nil {
		return Config{}, fmt.Errorf("REFERENCE_TZ: %w", err)
	}
	cfg.ReferenceTZ = loc

	attempts, err := strconv.Atoi(get("ALLOCATE_MAX_ATTEMPTS", "5"))
	if err != nil || attempts < 1 {
		return Config{}, fmt.Errorf("ALLOCATE_MAX_ATTEMPTS must be a positive integer")
	}
	cfg.AllocateMaxAttempts = attempts

	ttl, err := time.ParseDuration(get("IDEMPOTENCY_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return Config{}, fmt.Errorf("IDEMPOTENCY_TTL must be a positive duration")
	}
	cfg.IdempotencyTTL = ttl

	switch cfg.Archive.Driver {
	case "none", "fs":
	case "s3":
		if cfg.Archive.S3Bucket == "" {
			return Config{}, fmt.Errorf("EXPORT_ARCHIVE_S3_BUCKET required for s3 archive driver")
		}
	default:
		return Config{}, fmt.Errorf("unknown EXPORT_ARCHIVE_DRIVER %q", cfg.Archive.Driver)
	}

	return cfg, nil
}
