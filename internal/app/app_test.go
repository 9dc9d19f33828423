package app

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-picker/internal/config"
)

func newConfig(t *testing.T, driver string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.FromEnv(func(key string) string {
		switch key {
		case "STORE_DRIVER":
			return driver
		case "DB_PATH":
			return filepath.Join(dir, "nested", "snippets.db")
		case "STORE_FILE":
			return filepath.Join(dir, "snippets.json")
		}
		return ""
	})
	require.NoError(t, err)
	return cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_Drivers(t *testing.T) {
	tests := []struct {
		driver    string
		canWatch  bool
		wantWhere string
	}{
		{config.DriverMemory, false, "memory"},
		{config.DriverSQLite, false, "snippets.db"},
		{config.DriverFile, true, "snippets.json"},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := New(ctx, newConfig(t, tt.driver), discard(), nil)
			require.NoError(t, err)
			t.Cleanup(func() { a.Close() })

			assert.Contains(t, a.StoreLocation(), tt.wantWhere)

			// The whole stack works end to end on every driver.
			created, err := a.Snippets.Create(ctx, "greet", "Hello!", "")
			require.NoError(t, err)
			got, err := a.Snippets.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created, got)

			_, ok, err := a.Watch(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.canWatch, ok)
		})
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := newConfig(t, config.DriverRedis)
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := New(context.Background(), cfg, discard(), nil)
	assert.Error(t, err)
}

func TestNewDeliveryController(t *testing.T) {
	a, err := New(context.Background(), newConfig(t, config.DriverMemory), discard(), nil)
	require.NoError(t, err)

	assert.NotNil(t, a.NewDeliveryController(DeliveryParts{}))
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), newConfig(t, config.DriverSQLite), discard(), nil)
	require.NoError(t, err)

	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}
