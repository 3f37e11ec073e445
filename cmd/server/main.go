// Package main is the entry point for the idle clicker server.
//
// main only reads configuration, builds the outer collaborators (logger,
// best-score tracker, catalog source, GitHub provider) and hands them to
// internal/server. Everything else lives in internal/.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/idle-clicker/internal/auth"
	"github.com/sakif/idle-clicker/internal/catalog"
	"github.com/sakif/idle-clicker/internal/config"
	"github.com/sakif/idle-clicker/internal/leaderboard"
	"github.com/sakif/idle-clicker/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// config.yaml is optional; every key can come from the environment.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. LOGGING ===
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if cfg.JWTSecret == "" {
		// Without a secret nobody could sign in, so refuse to start.
		// Generate one with: JWT_SECRET=$(openssl rand -hex 32)
		logger.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	// === 3. DATABASE DIRECTORY ===
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 4. BEST-SCORE TRACKER ===
	// Redis lets several instances share one record; without it the record
	// lives in this process.
	var tracker leaderboard.Tracker = leaderboard.NewMemoryTracker()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis",
				slog.String("addr", cfg.RedisAddr),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		tracker = leaderboard.NewRedisTracker(rdb, leaderboard.DefaultKey)
		logger.Info("best score tracked in redis", slog.String("addr", cfg.RedisAddr))
	}

	// === 5. SERVER ===
	srvCfg := server.Config{
		Port:      cfg.Port,
		DBPath:    cfg.DBPath,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
	}
	if cfg.GitHubEnabled() {
		srvCfg.GitHub = auth.NewGitHubProvider(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	source := catalog.NewHTTPSource(cfg.CatalogURL, cfg.CatalogTimeout)

	srv, err := server.New(srvCfg, logger, tracker, source)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
