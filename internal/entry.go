// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/studycards/internal/api"
	"github.com/starford/studycards/internal/cardset"
	"github.com/starford/studycards/internal/mcpserver"
	"github.com/starford/studycards/internal/sse"
	"github.com/starford/studycards/internal/star"
	"github.com/starford/studycards/internal/storage"
	"github.com/starford/studycards/internal/study"
	"github.com/starford/studycards/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{out: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// library is an opened store with the study controller on top of it.
type library struct {
	store storage.Provider
	ctrl  *study.Controller
}

func openLibrary(cfg *Config, logger *slog.Logger) (*library, error) {
	store, err := storage.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	ctrl, err := study.New(
		cardset.NewRepository(store, logger),
		star.NewTracker(store, logger),
		study.WithLogger(logger),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init study session: %w", err)
	}
	return &library{store: store, ctrl: ctrl}, nil
}

func (l *library) Close() error {
	return l.store.Close()
}

// newHTTPHandler builds the root router: request middleware, unauthenticated
// health checks and the API under /api.
func newHTTPHandler(cfg *Config, ctrl *study.Controller, broker *sse.Broker) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := ctrl.View(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(ctrl, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, broker))
	return r
}

// Run serves the REST API and event stream until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("store_path", cfg.Store.Path),
		slog.Bool("store_watch", cfg.Store.Watch),
		slog.String("log_level", cfg.App.LogLevel.String()))

	lib, err := openLibrary(cfg, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	broker := sse.NewBroker(500 * time.Millisecond)
	defer broker.Close()

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           newHTTPHandler(cfg, lib.ctrl, broker),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if fs, ok := lib.store.(*storage.FS); ok && cfg.Store.Watch {
		g.Go(func() error {
			return watch.Watch(gCtx, fs, logger, func(key string) {
				reloadAfterExternalChange(lib.ctrl, broker, logger, key)
			})
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Streaming SSE handlers only return once the broker closes.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return context.Canceled
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

func reloadAfterExternalChange(ctrl *study.Controller, broker *sse.Broker, logger *slog.Logger, key string) {
	if key == storage.KeyCardSets {
		if err := ctrl.Reload(); err != nil {
			logger.Warn("reload after external change failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
			return
		}
		broker.PublishSetsChanged("external")
	}
	view, err := ctrl.View()
	if err != nil {
		logger.Warn("render after external change failed", slog.String("error", err.Error()))
		return
	}
	broker.PublishSession(view)
}

// RunMCP serves the study tools over MCP stdio. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := newLogger(app.config, os.Stderr)
	slog.SetDefault(logger)

	lib, err := openLibrary(app.config, logger)
	if err != nil {
		return err
	}
	defer lib.Close()

	logger.Info("MCP server starting", slog.String("store_path", app.config.Store.Path))
	return mcpserver.New(lib.ctrl, app.version).ServeStdio()
}
