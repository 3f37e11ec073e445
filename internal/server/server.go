// Package server is the composition root: it builds every repository,
// service and handler, mounts them on a chi router, and runs the HTTP server
// with graceful shutdown.
//
// DEPENDENCY CHAIN:
//
//	sqlite.DB ──► ProgressionService ──► GameHandler
//	          ├─► ShopService ◄── catalog.Source
//	          ├─► AuthService ◄── TokenService, PasswordService
//	          └─► UserService
//	leaderboard.Tracker ──► ProgressionService
//
// ProgressionService and ShopService share one UserLocks so a player's
// clicks, resets and purchases never interleave.
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

	"github.com/sakif/idle-clicker/internal/auth"
	"github.com/sakif/idle-clicker/internal/catalog"
	"github.com/sakif/idle-clicker/internal/handler"
	"github.com/sakif/idle-clicker/internal/leaderboard"
	"github.com/sakif/idle-clicker/internal/middleware"
	"github.com/sakif/idle-clicker/internal/model"
	sqliteRepo "github.com/sakif/idle-clicker/internal/repository/sqlite"
	"github.com/sakif/idle-clicker/internal/service"
)

// Config holds what the server needs from internal/config.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration

	// GitHub login routes are only mounted when GitHub is non-nil.
	GitHub handler.GitHubOAuth
}

// Server owns the database connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and wires every layer. tracker holds the global
// best score; source is where Seed fetches the catalog from.
func New(cfg Config, logger *slog.Logger, tracker leaderboard.Tracker, source catalog.Source) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, tracker, source)
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes mounts middleware and routes.
//
// MIDDLEWARE ORDER:
//  1. RequestID, so the logger can print it
//  2. RealIP
//  3. Logger
//  4. Recoverer, innermost, so a panic still produces a logged 500
func (s *Server) setupRoutes(tokens *auth.TokenService, tracker leaderboard.Tracker, source catalog.Source) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	passwords := auth.NewPasswordService()
	locks := service.NewUserLocks()

	authService := service.NewAuthService(s.db, tokens, passwords, s.logger)
	userService := service.NewUserService(s.db, passwords, s.logger)
	progressionService := service.NewProgressionService(s.db, s.db, tracker, locks, s.logger)
	shopService := service.NewShopService(s.db, s.db, s.db, source, locks, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.config.GitHub, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	gameHandler := handler.NewGameHandler(progressionService, s.logger)
	inventoryHandler := handler.NewInventoryHandler(shopService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	requireAuth := auth.RequireAuth(tokens)
	requireAdmin := auth.RequireRole(model.RoleAdmin)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	// === Auth Routes ===
	s.router.Post("/auth/logout", authHandler.HandleLogout)
	if s.config.GitHub != nil {
		s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
		s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	} else {
		s.logger.Info("GitHub login disabled (no client id/secret)")
	}

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// public
		r.Post("/users/register", authHandler.HandleRegister)
		r.Post("/users/login", authHandler.HandleLogin)
		r.Get("/game/best-score", gameHandler.HandleBestScore)
		r.Get("/game/leaderboard", gameHandler.HandleLeaderboard)
		r.Get("/inventory/items", inventoryHandler.HandleListItems)

		// any signed-in player
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", authHandler.HandleMe)

			r.Get("/users", userHandler.HandleList)
			r.Get("/users/search/{name}", userHandler.HandleSearch)
			r.Get("/users/{id}", userHandler.HandleGet)

			r.Post("/game/initialize", gameHandler.HandleInitialize)
			r.Get("/game/progression", gameHandler.HandleProgression)
			r.Get("/game/progression/{userId}", gameHandler.HandleProgression)
			r.Post("/game/click", gameHandler.HandleClick)
			r.Get("/game/reset-cost", gameHandler.HandleResetCost)
			r.Post("/game/reset", gameHandler.HandleReset)

			r.Get("/inventory", inventoryHandler.HandleInventory)
			r.Post("/inventory/buy/{itemId}", inventoryHandler.HandleBuy)

			// admins only
			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/users/admins", userHandler.HandleAdmins)
				r.Put("/users/{id}", userHandler.HandleUpdate)
				r.Delete("/users/{id}", userHandler.HandleDelete)
				r.Post("/inventory/seed", inventoryHandler.HandleSeed)
			})
		})
	})
}

// Start serves until SIGINT/SIGTERM, then gives in-flight requests 30
// seconds to finish and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
