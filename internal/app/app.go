// Package app is the composition root shared by the daemon and the terminal
// picker: it opens the configured store and builds the repository, services
// and delivery controller on top of it.
//
// DEPENDENCY FLOW:
//
//	config → store (sqlite | file | memory | redis)
//	       → repository.Repository
//	       → service.SnippetService, service.ModeService
//	       → delivery.Controller (platform clipboard, paste, focus)
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/snippet-picker/internal/config"
	"github.com/sakif/snippet-picker/internal/delivery"
	"github.com/sakif/snippet-picker/internal/delivery/platform"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/repository"
	"github.com/sakif/snippet-picker/internal/service"
	"github.com/sakif/snippet-picker/internal/store"
	"github.com/sakif/snippet-picker/internal/store/filestore"
	"github.com/sakif/snippet-picker/internal/store/memory"
	redisstore "github.com/sakif/snippet-picker/internal/store/redis"
	"github.com/sakif/snippet-picker/internal/store/sqlite"
)

// App holds the long-lived pieces every surface needs.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	Store    store.Store
	Repo     *repository.Repository
	Snippets *service.SnippetService
	Modes    *service.ModeService

	// Focus remembers the app that was frontmost when a picker opened.
	// Surfaces call Focus.Record when they show; native deliveries restore
	// from the same tracker.
	Focus *platform.FocusTracker

	closers []func() error
}

// New opens the store named by cfg.StoreDriver and wires the services. m may
// be nil (the terminal picker does not export metrics).
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: m}

	s, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Store = s
	a.Repo = repository.New(s)
	a.Snippets = service.NewSnippetService(a.Repo, a.Repo, logger, m)
	a.Modes = service.NewModeService(a.Repo, logger, m)
	a.Focus = platform.NewFocusTracker(cfg.SelfAppID)

	logger.Debug("store opened", slog.String("driver", cfg.StoreDriver), slog.String("location", a.StoreLocation()))
	return a, nil
}

func (a *App) openStore(ctx context.Context) (store.Store, error) {
	cfg := a.Config
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		if err := ensureDir(cfg.DBPath); err != nil {
			return nil, err
		}
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("app: opening sqlite store: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		return db, nil

	case config.DriverFile:
		return filestore.New(cfg.StoreFile, a.Logger), nil

	case config.DriverMemory:
		return memory.New(), nil

	case config.DriverRedis:
		rs, err := redisstore.New(ctx, cfg.RedisAddr, cfg.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("app: opening redis store: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		return rs, nil
	}
	return nil, fmt.Errorf("app: unknown store driver %q", cfg.StoreDriver)
}

// ensureDir creates the parent directory of path (like `mkdir -p`).
func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("app: creating %s: %w", dir, err)
	}
	return nil
}

// StoreLocation describes where data lives, for logs and `picker info`.
func (a *App) StoreLocation() string {
	switch a.Config.StoreDriver {
	case config.DriverSQLite:
		return a.Config.DBPath
	case config.DriverFile:
		return a.Config.StoreFile
	case config.DriverRedis:
		return a.Config.RedisAddr + "/" + a.Config.RedisKey
	}
	return "memory"
}

// Watch reports writes made by other processes, when the store can see
// them. ok is false for stores that cannot.
func (a *App) Watch(ctx context.Context) (changes <-chan store.Change, ok bool, err error) {
	w, ok := a.Store.(store.Watcher)
	if !ok {
		return nil, false, nil
	}
	changes, err = w.Watch(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("app: watching store: %w", err)
	}
	return changes, true, nil
}

// DeliveryParts are the surface-specific pieces of a delivery controller.
type DeliveryParts struct {
	Hider    delivery.PickerHider
	Guide    delivery.PermissionGuide
	Notifier delivery.Notifier
	// Focus tracks the previously frontmost app. Nil means App.Focus.
	Focus *platform.FocusTracker
}

// NewDeliveryController builds a controller on the real platform
// capabilities with the configured settle times.
func (a *App) NewDeliveryController(parts DeliveryParts) *delivery.Controller {
	focus := parts.Focus
	if focus == nil {
		focus = a.Focus
	}
	return delivery.NewController(delivery.Config{
		Clipboard:       platform.Clipboard{},
		Hider:           parts.Hider,
		Focus:           focus,
		Paste:           platform.NewPasteSimulator(),
		Flag:            delivery.NewStoreFlag(a.Repo),
		Guide:           parts.Guide,
		Notifier:        parts.Notifier,
		ClipboardSettle: a.Config.PasteSettle,
		FocusSettle:     a.Config.FocusSettle,
		Logger:          a.Logger,
		Metrics:         a.Metrics,
	})
}

// Close releases the store.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
