// Package server sets up the daemon's HTTP server: router, middleware, routes
// and graceful shutdown.
//
// This is the wiring layer. It decides which URL maps to which handler and
// which middleware guards it; the handlers and services do the work.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/snippet-picker/internal/auth"
	"github.com/sakif/snippet-picker/internal/handler"
	"github.com/sakif/snippet-picker/internal/metrics"
	"github.com/sakif/snippet-picker/internal/middleware"
	"github.com/sakif/snippet-picker/internal/relay"
	"github.com/sakif/snippet-picker/internal/service"
)

// Config holds server configuration.
type Config struct {
	Addr string
}

// Deps are the services the routes call. Tokens may be nil to run without
// auth; Metrics may be nil to leave /metrics out.
type Deps struct {
	Snippets  *service.SnippetService
	Modes     *service.ModeService
	Deliverer handler.Deliverer
	Hub       *relay.Hub
	Tokens    *auth.TokenService
	// Focus is recorded by POST /api/picker/shown and should be the tracker
	// the Deliverer restores from. Nil leaves the route out.
	Focus   handler.FocusRecorder
	Metrics *metrics.Metrics
}

type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	deps   Deps
}

func New(cfg Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                      liveness
//	GET    /metrics                      Prometheus
//	GET    /ws                           overlay relay (token in ?token=)
//	GET    /api/snippets?q=&mode=&global ranked list
//	POST   /api/snippets                 create
//	GET    /api/snippets/{id}            one snippet
//	PUT    /api/snippets/{id}            update
//	DELETE /api/snippets/{id}            delete
//	POST   /api/snippets/{id}/move-up    swap with previous in mode
//	POST   /api/snippets/{id}/move-top   pin to top of mode
//	GET    /api/modes                    list
//	POST   /api/modes                    create (becomes current)
//	GET    /api/modes/current            current mode
//	PUT    /api/modes/current            switch
//	POST   /api/modes/cycle              next/previous mode
//	PUT    /api/modes/{id}               rename
//	DELETE /api/modes/{id}               delete mode and its snippets
//	POST   /api/modes/{id}/move-up       reorder
//	POST   /api/modes/{id}/move-top      reorder
//	DELETE /api/modes/{id}/snippets      delete every snippet of a mode
//	POST   /api/import                   text import into current mode
//	GET    /api/export?mode=&all=1       text export
//	POST   /api/deliver                  paste natively or relay to an overlay
//	POST   /api/picker/shown             record the app to restore before pasting
//
// MIDDLEWARE ORDER:
// RequestID, RealIP, logging, then Recoverer, so a panic is still logged
// with its request id. Auth runs per group.
func (s *Server) setupRoutes() {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics.Handler())
	}

	requireSurface := auth.RequireSurface(s.deps.Tokens)

	if s.deps.Hub != nil {
		s.router.With(requireSurface).Get("/ws", s.deps.Hub.ServeHTTP)
	}

	snippets := handler.NewSnippetHandler(s.deps.Snippets, s.logger)
	modes := handler.NewModeHandler(s.deps.Modes, s.logger)

	var relayTarget handler.Relay = noRelay{}
	if s.deps.Hub != nil {
		relayTarget = s.deps.Hub
	}
	deliver := handler.NewDeliveryHandler(s.deps.Deliverer, relayTarget, s.deps.Snippets, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(requireSurface)

		r.Route("/snippets", func(r chi.Router) {
			r.Get("/", snippets.HandleList)
			r.Post("/", snippets.HandleCreate)
			r.Get("/{id}", snippets.HandleGet)
			r.Put("/{id}", snippets.HandleUpdate)
			r.Delete("/{id}", snippets.HandleDelete)
			r.Post("/{id}/move-up", snippets.HandleMoveUp)
			r.Post("/{id}/move-top", snippets.HandleMoveToTop)
		})

		r.Route("/modes", func(r chi.Router) {
			r.Get("/", modes.HandleList)
			r.Post("/", modes.HandleCreate)
			r.Get("/current", modes.HandleCurrent)
			r.Put("/current", modes.HandleSwitch)
			r.Post("/cycle", modes.HandleCycle)
			r.Put("/{id}", modes.HandleRename)
			r.Delete("/{id}", modes.HandleDelete)
			r.Post("/{id}/move-up", modes.HandleMoveUp)
			r.Post("/{id}/move-top", modes.HandleMoveToTop)
			r.Delete("/{id}/snippets", snippets.HandleDeleteInMode)
		})

		r.Post("/import", snippets.HandleImport)
		r.Get("/export", snippets.HandleExport)
		r.Post("/deliver", deliver.HandleDeliver)
		if s.deps.Focus != nil {
			r.Post("/picker/shown", handler.NewFocusHandler(s.deps.Focus, s.logger).HandlePickerShown)
		}
	})
}

// noRelay answers relay deliveries when the daemon runs without a hub.
type noRelay struct{}

func (noRelay) InsertPrompt(string) (int, error) { return 0, nil }

// Start serves until SIGINT/SIGTERM or until ctx ends, then shuts down
// gracefully: stop accepting connections, give in-flight requests ten
// seconds, disconnect overlays.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: /ws connections are long-lived and a native
		// delivery may wait on macOS for a moment.
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("addr", s.config.Addr),
			slog.Bool("auth", s.deps.Tokens != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: listening: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.deps.Hub != nil {
		s.deps.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
