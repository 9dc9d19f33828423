package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, "snippets.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, "snippets.json", filepath.Base(cfg.StoreFile))
	assert.Equal(t, DefaultRedisAddr, cfg.RedisAddr)
	assert.Equal(t, DefaultRedisKey, cfg.RedisKey)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Empty(t, cfg.TokenSecret)
	assert.Zero(t, cfg.PasteSettle)
	assert.Zero(t, cfg.FocusSettle)
	assert.Equal(t, "127.0.0.1:7341", cfg.Addr())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"PORT":            "9000",
		"STORE_DRIVER":    " Redis ",
		"DB_PATH":         "/tmp/x.db",
		"STORE_FILE":      "/tmp/x.json",
		"REDIS_ADDR":      "redis:6380",
		"REDIS_KEY":       "mine",
		"LOG_LEVEL":       "debug",
		"TOKEN_SECRET":    "0123456789abcdef0123",
		"PASTE_SETTLE_MS": "80",
		"FOCUS_SETTLE_MS": "300",
		"SELF_APP_ID":     "com.googlecode.iterm2",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, DriverRedis, cfg.StoreDriver)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "/tmp/x.json", cfg.StoreFile)
	assert.Equal(t, "redis:6380", cfg.RedisAddr)
	assert.Equal(t, "mine", cfg.RedisKey)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 80*time.Millisecond, cfg.PasteSettle)
	assert.Equal(t, 300*time.Millisecond, cfg.FocusSettle)
	assert.Equal(t, "com.googlecode.iterm2", cfg.SelfAppID)
}

func TestFromEnv_SelfAppIDFromBundle(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"__CFBundleIdentifier": "com.apple.Terminal"}))
	require.NoError(t, err)
	assert.Equal(t, "com.apple.Terminal", cfg.SelfAppID)

	cfg, err = FromEnv(env(map[string]string{
		"__CFBundleIdentifier": "com.apple.Terminal",
		"SELF_APP_ID":          "com.sakif.snippet-picker",
	}))
	require.NoError(t, err)
	assert.Equal(t, "com.sakif.snippet-picker", cfg.SelfAppID)
}

func TestFromEnv_PortWithColon(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"PORT": ":8080"}))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{"port not a number", map[string]string{"PORT": "abc"}, "PORT"},
		{"port out of range", map[string]string{"PORT": "70000"}, "PORT"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}, "STORE_DRIVER"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"short secret", map[string]string{"TOKEN_SECRET": "short"}, "TOKEN_SECRET"},
		{"negative settle", map[string]string{"PASTE_SETTLE_MS": "-5"}, "PASTE_SETTLE_MS"},
		{"settle not a number", map[string]string{"FOCUS_SETTLE_MS": "soon"}, "FOCUS_SETTLE_MS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(env(tt.vars))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("STORE_DRIVER=memory\nREDIS_KEY=from-dotenv\n"), 0o600))
	t.Chdir(dir)

	// The real environment wins over .env.
	t.Setenv("REDIS_KEY", "from-env")
	// godotenv sets what it loads; make sure it does not leak.
	t.Setenv("STORE_DRIVER", "")
	os.Unsetenv("STORE_DRIVER")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "from-env", cfg.RedisKey)
}

func TestLoad_NoDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORE_DRIVER", "file")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverFile, cfg.StoreDriver)
}

func TestNewLogger_RespectsLevel(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{"LOG_LEVEL": "warn"}))
	require.NoError(t, err)

	var b strings.Builder
	logger := cfg.NewLogger(&b)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, b.String(), "hidden")
	assert.Contains(t, b.String(), "shown")
}
