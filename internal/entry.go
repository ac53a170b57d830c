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

	"github.com/starford/dagaz/internal/api"
	"github.com/starford/dagaz/internal/assets"
	"github.com/starford/dagaz/internal/boardservice"
	"github.com/starford/dagaz/internal/mcpserver"
	"github.com/starford/dagaz/internal/realtime"
	"github.com/starford/dagaz/internal/store"
	"github.com/starford/dagaz/internal/thumbnail"
)

// Run starts the board server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("assets_path", cfg.Assets.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure the asset directory exists.
	if err := os.MkdirAll(cfg.Assets.Path, 0o755); err != nil {
		return fmt.Errorf("create assets dir: %w", err)
	}

	files, err := assets.NewFS(cfg.Assets.Path)
	if err != nil {
		return fmt.Errorf("init assets: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// Realtime hub and thumbnail pipeline.
	hub := realtime.NewHub(cfg.Board.PresenceInterval.Std())
	defer hub.Close()

	renderer := thumbnail.NewRenderer(cfg.Board.ThumbnailWidth, cfg.Board.ThumbnailHeight)
	thumbs := thumbnail.NewScheduler(db, files, renderer, cfg.Board.ThumbnailDebounce.Std(), logger)
	defer thumbs.Close()

	svc := boardservice.NewService(db, hub, thumbs, logger)
	apiRouter := api.NewRouter(svc, hub, files, cfg.Auth.AuthEnabled(), cfg.Auth.Token)

	// Build chi router.
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
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Ping(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api, asset files at the asset URL prefix.
	r.Mount("/api", apiRouter)
	r.Mount(assets.URLPrefix, api.NewAssetRouter(files))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the asset directory so edited image files republish their
	// elements.
	g.Go(func() error {
		if err := assets.Watch(gCtx, db, hub, cfg.Assets.Path, logger); err != nil {
			logger.Warn("asset watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
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

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP stdio interface over the same store and asset
// directory. Logs go to stderr so stdout stays a clean protocol stream.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Assets.Path, 0o755); err != nil {
		return fmt.Errorf("create assets dir: %w", err)
	}
	files, err := assets.NewFS(cfg.Assets.Path)
	if err != nil {
		return fmt.Errorf("init assets: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// MCP mutations publish to a hub nobody subscribes to; the HTTP server,
	// when running, has its own process and hub.
	hub := realtime.NewHub(cfg.Board.PresenceInterval.Std())
	defer hub.Close()

	svc := boardservice.NewService(db, hub, nil, logger)
	return mcpserver.New(svc, files).ServeStdio()
}
