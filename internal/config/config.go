// Package config reads runtime settings from the environment.
//
// A .env file in the working directory is loaded first if it exists;
// variables already set in the environment win over it. Every setting has
// a default, so an empty environment gives a working local setup backed by
// SQLite under the user's config directory.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

const (
	DefaultPort        = 7341
	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisKey    = "snippet-picker"
	minTokenSecretSize = 16
)

// bundleIDEnv is set by macOS in every process started from an app bundle
// (Terminal, iTerm, the panel app) and names that app. It is the natural
// SELF_APP_ID: the app the picker runs inside.
const bundleIDEnv = "__CFBundleIdentifier"

type Config struct {
	Port int

	StoreDriver string
	DBPath      string // sqlite
	StoreFile   string // file
	RedisAddr   string // redis
	RedisKey    string // redis hash name

	LogLevel slog.Level

	// TokenSecret signs surface tokens. Empty disables auth on the daemon,
	// which is only sensible when it listens on localhost.
	TokenSecret string

	PasteSettle time.Duration
	FocusSettle time.Duration

	// SelfAppID is the bundle id of the app the picker runs in. Focus
	// tracking never records it as the "previous" app. Defaults to the
	// launching app's __CFBundleIdentifier.
	SelfAppID string
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Load uses os.Getenv; tests pass a
// map lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	dataDir := defaultDataDir()
	cfg := &Config{
		Port:        DefaultPort,
		StoreDriver: firstNonEmpty(strings.ToLower(get("STORE_DRIVER")), DriverSQLite),
		DBPath:      firstNonEmpty(get("DB_PATH"), filepath.Join(dataDir, "snippets.db")),
		StoreFile:   firstNonEmpty(get("STORE_FILE"), filepath.Join(dataDir, "snippets.json")),
		RedisAddr:   firstNonEmpty(get("REDIS_ADDR"), DefaultRedisAddr),
		RedisKey:    firstNonEmpty(get("REDIS_KEY"), DefaultRedisKey),
		LogLevel:    slog.LevelInfo,
		TokenSecret: get("TOKEN_SECRET"),
		SelfAppID:   firstNonEmpty(get("SELF_APP_ID"), get(bundleIDEnv)),
	}

	if raw := get("PORT"); raw != "" {
		port, err := strconv.Atoi(strings.TrimPrefix(raw, ":"))
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("config: invalid PORT %q", raw)
		}
		cfg.Port = port
	}

	switch cfg.StoreDriver {
	case DriverSQLite, DriverFile, DriverMemory, DriverRedis:
	default:
		return nil, fmt.Errorf("config: unknown STORE_DRIVER %q (want sqlite, file, memory or redis)", cfg.StoreDriver)
	}

	if raw := get("LOG_LEVEL"); raw != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("config: invalid LOG_LEVEL %q: %w", raw, err)
		}
	}

	if cfg.TokenSecret != "" && len(cfg.TokenSecret) < minTokenSecretSize {
		return nil, fmt.Errorf("config: TOKEN_SECRET must be at least %d characters", minTokenSecretSize)
	}

	var err error
	if cfg.PasteSettle, err = millis(get, "PASTE_SETTLE_MS"); err != nil {
		return nil, err
	}
	if cfg.FocusSettle, err = millis(get, "FOCUS_SETTLE_MS"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Addr is the daemon's listen address. It binds to loopback only: the API
// can type into other applications.
func (c *Config) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", c.Port)
}

// NewLogger returns the text logger every binary uses.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: c.LogLevel}))
}

// millis parses an optional millisecond count. Zero (unset) means "use the
// component's default".
func millis(get func(string) string, key string) (time.Duration, error) {
	raw := get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("config: invalid %s %q", key, raw)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "snippet-picker")
	}
	return "data"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
