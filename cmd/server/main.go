// Package main is the entry point for the snippet-picker daemon.
//
// The daemon serves the snippet library to surfaces that cannot open the
// store themselves (browser extension, in-page overlay) and relays inserts to
// them over a websocket. The main package stays minimal:
// 1. Read configuration (env vars, optional .env file)
// 2. Create dependencies (logger, metrics, store, delivery controller)
// 3. Start the server
//
// All actual logic lives in internal/.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/snippet-picker/internal/app"
	"github.com/sakif/snippet-picker/internal/auth"
	"github.com/sakif/snippet-picker/internal/config"
	"github.com/sakif/snippet-picker/internal/delivery/platform"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/relay"
	"github.com/sakif/snippet-picker/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("daemon stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// === 1. CONFIGURATION + LOGGING ===
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	// === 2. STORE + SERVICES ===
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	a, err := app.New(ctx, cfg, logger, m)
	if err != nil {
		return err
	}
	defer a.Close()

	// === 3. RELAY ===
	// Writes made by the terminal picker or another surface reach open
	// overlays as storageChanged messages, when the store can see them.
	hub := relay.NewHub(logger, m)
	changes, ok, err := a.Watch(ctx)
	switch {
	case err != nil:
		logger.Warn("store changes will not be pushed", slog.String("error", err.Error()))
	case ok:
		go hub.Follow(ctx, changes)
	}

	// === 4. DELIVERY ===
	// The daemon has no picker window to hide; the surface that called
	// /api/deliver hides its own before asking. It calls /api/picker/shown
	// when it opens, which records into a.Focus, the tracker this
	// controller restores from.
	deliverer := a.NewDeliveryController(app.DeliveryParts{
		Guide: platform.LogGuide{Logger: logger},
	})

	// === 5. AUTH ===
	var tokens *auth.TokenService
	if cfg.TokenSecret == "" {
		logger.Warn("TOKEN_SECRET not set, the API is open to every local process and web page")
	} else if tokens, err = auth.NewTokenService(cfg.TokenSecret); err != nil {
		return err
	}

	// === 6. SERVE ===
	srv := server.New(server.Config{Addr: cfg.Addr()}, server.Deps{
		Snippets:  a.Snippets,
		Modes:     a.Modes,
		Deliverer: deliverer,
		Hub:       hub,
		Tokens:    tokens,
		Focus:     a.Focus,
		Metrics:   m,
	}, logger)

	logger.Info("store ready",
		slog.String("driver", cfg.StoreDriver),
		slog.String("location", a.StoreLocation()),
	)
	if cfg.SelfAppID == "" {
		logger.Warn("SELF_APP_ID not set, the picker's own app may be restored instead of the previous one")
	}
	// Start blocks until SIGINT/SIGTERM.
	return srv.Start(ctx)
}
