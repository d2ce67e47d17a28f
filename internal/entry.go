// Package internal provides the main application initialization and runtime logic.
package internal

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
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/didact/internal/api"
	"github.com/starford/didact/internal/mcpserver"
	"github.com/starford/didact/internal/sse"
)

// Run starts the HTTP server, the library watcher and the SSE broker, and
// blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := newLogger(cfg, app.logOut)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("workspace", cfg.Workspace.Root),
		slog.String("settings_path", cfg.Settings.Path),
		slog.String("tutorials_dir", cfg.Tutorials.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker doubles as outcome reporter and tree notifier.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	eng, err := newEngine(cfg, logger, broker, broker, app.reporter)
	if err != nil {
		return err
	}
	defer eng.Close()

	eng.syncLibrary(ctx)

	apiRouter := api.NewRouter(eng.Service, eng.Terminals, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Library watcher feeds the broker.
	if eng.Library != nil {
		g.Go(func() error {
			if err := eng.Library.Watch(gCtx, broker.PublishLibraryEvent); err != nil {
				logger.Warn("library watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout until stdin closes. Logs go to
// stderr.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	out := app.logOut
	if out == nil || out == os.Stdout {
		out = os.Stderr
	}
	logger := newLogger(app.config, out)
	slog.SetDefault(logger)

	eng, err := newEngine(app.config, logger, nil, app.reporter)
	if err != nil {
		return err
	}
	defer eng.Close()
	eng.syncLibrary(ctx)

	srv := mcpserver.New(eng.Service, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gCtx)
	defer stopWatch()

	if eng.Library != nil {
		g.Go(func() error {
			if err := eng.Library.Watch(watchCtx, nil); err != nil {
				logger.Warn("library watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}
	g.Go(func() error {
		defer stopWatch()
		logger.Info("MCP server listening on stdio")
		return srv.ServeStdio()
	})
	return g.Wait()
}
