// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/olegiv/staffblog/internal/cache"
	"github.com/olegiv/staffblog/internal/config"
	"github.com/olegiv/staffblog/internal/docimport"
	"github.com/olegiv/staffblog/internal/handler"
	"github.com/olegiv/staffblog/internal/logging"
	"github.com/olegiv/staffblog/internal/metrics"
	"github.com/olegiv/staffblog/internal/middleware"
	"github.com/olegiv/staffblog/internal/post"
	"github.com/olegiv/staffblog/internal/render"
	"github.com/olegiv/staffblog/internal/scheduler"
	"github.com/olegiv/staffblog/internal/session"
	"github.com/olegiv/staffblog/internal/storage"
	"github.com/olegiv/staffblog/internal/store"
	"github.com/olegiv/staffblog/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Staff Blog - internal announcement board\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STAFFBLOG_SESSION_SECRET    CSRF/session key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STAFFBLOG_ADMIN_PASSWORD    Shared admin credential (required, min 12 chars)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STAFFBLOG_DB_PATH           SQLite database path (default: ./data/staffblog.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STAFFBLOG_SERVER_PORT       Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STAFFBLOG_STORAGE           Media backend: local|s3 (default: local)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STAFFBLOG_CONVERT_URL       Word conversion service URL\n")
		_, _ = fmt.Fprintf(os.Stderr, "  STAFFBLOG_REDIS_URL         Redis URL for the post cache (optional)\n")
	}

	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("staffblog %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR logs to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)

	ctx := context.Background()

	// Seed or rotate the shared admin credential
	if err := store.Seed(ctx, db, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		return fmt.Errorf("seeding admin user: %w", err)
	}

	// Media storage backend
	var media storage.Backend
	if cfg.UseS3() {
		s3Backend, err := storage.NewS3(ctx, storage.S3Config{
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			PublicURL:       cfg.S3PublicURL,
		})
		if err != nil {
			return fmt.Errorf("initializing s3 storage: %w", err)
		}
		media = s3Backend
		slog.Info("media storage initialized", "backend", "s3", "bucket", cfg.S3Bucket)
	} else {
		local, err := storage.NewLocal(cfg.MediaDir, cfg.MediaBasePath)
		if err != nil {
			return fmt.Errorf("initializing local storage: %w", err)
		}
		media = local
		slog.Info("media storage initialized", "backend", "local", "dir", cfg.MediaDir)
	}

	// Post list cache
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Prefix = cfg.CachePrefix
	cacheConfig.DefaultTTL = time.Duration(cfg.CacheTTL) * time.Second
	if cfg.RedisURL != "" {
		cacheConfig.Type = "redis"
		cacheConfig.RedisURL = cfg.RedisURL
	}
	cacher := cache.New(cacheConfig, logger)
	defer func() {
		if err := cacher.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	postsCache := cache.NewPostsCache(cacher, cacheConfig.DefaultTTL)

	queries := store.New(db)
	repo := post.NewRepository(queries, media, postsCache, logger)

	// Session manager backed by the sessions table
	sessionManager := session.New(db, cfg.IsDevelopment())

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		IsDev:          cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}
	slog.Info("template renderer initialized")

	// Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Background maintenance jobs
	sched := scheduler.New(repo, queries, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer sched.Stop()

	converter := docimport.NewConverter(cfg.ConvertURL, logger)

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	csrfMiddleware := middleware.CSRF([]byte(cfg.SessionSecret), cfg.TrustedOrigins)

	authHandler := handler.NewAuthHandler(db, renderer, sessionManager, loginProtection, collector)
	adminHandler := handler.NewAdminHandler(repo, renderer, converter, collector)
	frontendHandler := handler.NewFrontendHandler(repo, renderer)
	healthHandler := handler.NewHealthHandler(db)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(collector.Middleware)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment())))
	r.Use(sessionManager.LoadAndSave)

	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Method(http.MethodGet, handler.RouteMetrics, metrics.Handler(registry))

	// Static assets
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	// Uploaded media, served from disk for the local backend. The S3
	// backend serves media from its public URL instead.
	if !cfg.UseS3() {
		mediaHandler := http.StripPrefix(cfg.MediaBasePath+"/", http.FileServer(http.Dir(cfg.MediaDir)))
		r.Handle(cfg.MediaBasePath+"/*", mediaHandler)
	}

	// Public frontend routes
	r.Get(handler.RouteRoot, frontendHandler.Home)
	r.Get(handler.RoutePostSlug, frontendHandler.Post)

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Get(handler.RouteLogin, authHandler.LoginForm)
		r.Post(handler.RouteLogin, authHandler.Login)
		r.Post(handler.RouteLogout, authHandler.Logout)
	})

	// Admin routes (protected)
	r.Route(handler.RouteAdmin, func(r chi.Router) {
		r.Use(csrfMiddleware)
		r.Use(middleware.Auth(sessionManager))
		r.Use(middleware.LoadUser(sessionManager, db))

		r.Get(handler.RouteRoot, adminHandler.List)
		r.Get(handler.RouteAdminCreate, adminHandler.NewForm)
		r.Post(handler.RouteAdminCreate, adminHandler.Create)
		r.Get(handler.RouteAdminEdit, adminHandler.EditForm)
		r.Post(handler.RouteAdminEdit, adminHandler.Update)
		r.Post(handler.RouteAdminDelete, adminHandler.Delete)
		r.Post(handler.RouteAdminImport, adminHandler.ImportDoc)
	})

	r.NotFound(frontendHandler.NotFound)

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
