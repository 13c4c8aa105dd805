// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: every dependency is built here, in New, and
// handed down to the layer that needs it.
//
//	config.Config → user store (sqlite or postgres)
//	              → auth.Registry (identity providers)
//	              → auth.TokenService → auth.Sessions
//	              → service.AuthService → handler.AuthHandler / handler.PageHandler
//
// Keeping it out of main.go lets tests build a complete server in-process.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/config"
	"github.com/sakif/storefront/internal/handler"
	"github.com/sakif/storefront/internal/middleware"
	"github.com/sakif/storefront/internal/repository"
	pgRepo "github.com/sakif/storefront/internal/repository/postgres"
	sqliteRepo "github.com/sakif/storefront/internal/repository/sqlite"
	"github.com/sakif/storefront/internal/service"
	"github.com/sakif/storefront/web"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// userStore is a user repository that owns a connection pool.
type userStore interface {
	repository.UserRepository
	io.Closer
}

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the user store and closes it when Start returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  userStore
}

// New validates cfg, opens the user store and wires every route.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// openStore picks the backend from DATABASE_URL: a postgres:// URL selects
// PostgreSQL, anything else is a SQLite path.
func openStore(ctx context.Context, cfg config.Config) (userStore, error) {
	if cfg.UsesPostgres() {
		db, err := pgRepo.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil
	}

	if cfg.DatabaseURL != ":memory:" {
		dir := filepath.Dir(cfg.DatabaseURL)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}
	db, err := sqliteRepo.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	return db, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTES:
//
//	GET /                     → home page
//	GET /shop                 → shop page
//	GET /careers              → careers page
//	GET /about                → 303 to /
//	GET /authorize/{provider} → start an OAuth login
//	GET /callback/{provider}  → finish an OAuth login
//	GET /logout               → end the session
//	GET /api/me               → current user as JSON (401 when anonymous)
//	GET /static/*             → embedded CSS
//	anything else             → 303 to /
//
// Middleware order: RequestID, RealIP, Logger, Recoverer on everything;
// LoadPrincipal only on routes that care who is signed in.
func (s *Server) setupRoutes() error {
	registry, err := auth.NewRegistry(s.config.Providers(), s.config.ProviderTimeout)
	if err != nil {
		return fmt.Errorf("configuring identity providers: %w", err)
	}

	tokens, err := auth.NewTokenService(s.config.SecretKey, s.config.SessionTTL)
	if err != nil {
		return fmt.Errorf("configuring session tokens: %w", err)
	}
	sessions := auth.NewSessions(tokens, s.config.CookieSecure)

	authService := service.NewAuthService(s.store, registry, s.logger)
	authHandler := handler.NewAuthHandler(authService, sessions, s.config.BaseURL, s.logger)

	pageHandler, err := handler.NewPageHandler(web.Templates(), sessions, registry.Names(), s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))

	s.router.Group(func(r chi.Router) {
		r.Use(auth.LoadPrincipal(sessions, authService, s.logger))

		r.Get("/", pageHandler.HandleHome)
		r.Get("/shop", pageHandler.HandleShop)
		r.Get("/careers", pageHandler.HandleCareers)
		r.Get("/about", pageHandler.RedirectHome)

		r.Get("/authorize/{provider}", authHandler.HandleAuthorize)
		r.Get("/callback/{provider}", authHandler.HandleCallback)
		r.Get("/logout", authHandler.HandleLogout)

		r.With(auth.RequireAuth).Get("/api/me", authHandler.HandleMe)
	})

	s.router.NotFound(pageHandler.RedirectHome)

	s.logger.Info("identity providers configured", slog.Any("providers", registry.Names()))
	return nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the user store. Start calls it on return.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully:
// stop accepting connections, let in-flight requests finish, close the store.
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Leave room for a callback that makes two provider round trips.
		WriteTimeout: 15*time.Second + 2*s.config.ProviderTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", s.config.BaseURL),
			slog.Bool("postgres", s.config.UsesPostgres()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	}
}
