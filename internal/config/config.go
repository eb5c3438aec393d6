// Package config loads the task server's settings from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	BackendSQLite = "sqlite"
	BackendTables = "tables"

	defaultPort         = "8080"
	defaultSQLitePath   = "daily.db"
	defaultCacheTTL     = 5 * time.Minute
	defaultDeduperTTL   = 24 * time.Hour
	defaultJWKSCacheTTL = 15 * time.Minute
)

var (
	ErrMissingStorage = errors.New("missing storage config")
	ErrMissingAuth    = errors.New("missing Auth0 config")
)

// Config holds the server settings.
type Config struct {
	Debug bool
	Port  string

	Backend                 string
	SQLitePath              string
	StorageConnectionString string
	TasksTable              string
	EventsQueue             string

	// Redis is nil when REDIS_CONNECTION_STRING is unset; cache and
	// idempotency are then disabled.
	Redis      *redis.Options
	CacheTTL   time.Duration
	DeduperTTL time.Duration

	AuthTestMode  bool
	TestJWTSecret string
	Auth0Domain   string
	Auth0Audience string
	JWKSCacheTTL  time.Duration
}

// Issuer returns the Auth0 issuer URL.
func (c Config) Issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

// JWKSURL returns the Auth0 key set location.
func (c Config) JWKSURL() string {
	return fmt.Sprintf("https://%s/.well-known/jwks.json", c.Auth0Domain)
}

// FromEnv loads the configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.Getenv)
}

// Load reads every setting through getenv.
func Load(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port:         defaultPort,
		Backend:      BackendSQLite,
		SQLitePath:   defaultSQLitePath,
		CacheTTL:     defaultCacheTTL,
		DeduperTTL:   defaultDeduperTTL,
		JWKSCacheTTL: defaultJWKSCacheTTL,
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}
	if v := getenv("PORT"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return cfg, fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Port = v
	}

	if v := getenv("TASKS_BACKEND"); v != "" {
		cfg.Backend = strings.ToLower(v)
	}
	switch cfg.Backend {
	case BackendSQLite:
		if v := getenv("SQLITE_PATH"); v != "" {
			cfg.SQLitePath = v
		}
	case BackendTables:
		cfg.StorageConnectionString = getenv("STORAGE_CONNECTION_STRING")
		cfg.TasksTable = getenv("TASKS_TABLE")
		if cfg.StorageConnectionString == "" || cfg.TasksTable == "" {
			return cfg, ErrMissingStorage
		}
	default:
		return cfg, fmt.Errorf("unsupported TASKS_BACKEND %q", cfg.Backend)
	}
	cfg.EventsQueue = getenv("EVENTS_QUEUE")
	if cfg.EventsQueue != "" && cfg.StorageConnectionString == "" {
		cfg.StorageConnectionString = getenv("STORAGE_CONNECTION_STRING")
		if cfg.StorageConnectionString == "" {
			return cfg, fmt.Errorf("%w: EVENTS_QUEUE needs STORAGE_CONNECTION_STRING", ErrMissingStorage)
		}
	}

	if v := getenv("REDIS_CONNECTION_STRING"); v != "" {
		opts, err := ParseRedisConnectionString(v)
		if err != nil {
			return cfg, err
		}
		cfg.Redis = opts
	}
	var err error
	if cfg.CacheTTL, err = positiveDuration(getenv, "CACHE_TTL", cfg.CacheTTL); err != nil {
		return cfg, err
	}
	if cfg.DeduperTTL, err = positiveDuration(getenv, "DEDUPER_TTL", cfg.DeduperTTL); err != nil {
		return cfg, err
	}
	if cfg.JWKSCacheTTL, err = positiveDuration(getenv, "JWKS_CACHE_TTL", cfg.JWKSCacheTTL); err != nil {
		return cfg, err
	}

	if getenv("AUTH0_TEST_MODE") == "1" {
		cfg.AuthTestMode = true
		cfg.TestJWTSecret = getenv("TEST_JWT_SECRET")
		if cfg.TestJWTSecret == "" {
			return cfg, errors.New("TEST_JWT_SECRET must be set when AUTH0_TEST_MODE=1")
		}
		return cfg, nil
	}
	cfg.Auth0Domain = getenv("AUTH0_DOMAIN")
	cfg.Auth0Audience = getenv("AUTH0_AUDIENCE")
	if cfg.Auth0Domain == "" || cfg.Auth0Audience == "" {
		return cfg, ErrMissingAuth
	}
	return cfg, nil
}

func positiveDuration(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

// ParseRedisConnectionString accepts a redis:// URL or an Azure-style
// "host:port,password=...,ssl=True" string.
func ParseRedisConnectionString(conn string) (*redis.Options, error) {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts, nil
	}
	parts := strings.Split(conn, ",")
	addr := strings.TrimSpace(parts[0])
	if addr == "" || strings.Contains(addr, "=") {
		return nil, fmt.Errorf("invalid REDIS_CONNECTION_STRING")
	}
	opts := &redis.Options{Addr: addr}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			}
		}
	}
	return opts, nil
}
