// Package server wires the store, services, handlers and middleware into the
// HTTP router and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/flashdeck/internal/auth"
	"github.com/sakif/flashdeck/internal/clock"
	"github.com/sakif/flashdeck/internal/config"
	"github.com/sakif/flashdeck/internal/handler"
	"github.com/sakif/flashdeck/internal/middleware"
	"github.com/sakif/flashdeck/internal/repository"
	"github.com/sakif/flashdeck/internal/service"
)

// Deps are the collaborators the server is built from. The store is owned by
// the caller and must outlive the server.
type Deps struct {
	Store     repository.Store
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Server is the flashdeck HTTP API.
type Server struct {
	router *chi.Mux
	config config.ServerConfig
	logger *slog.Logger
}

// New builds the router. The composition root for services and handlers is
// here so that tests can serve the full API over an in-memory store.
func New(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: deps.Logger,
	}
	s.setupRoutes(deps)
	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes mounts the API. Route groups:
//
//	public     POST /api/auth, POST /api/users, GET /api/users[/{id}], GET /healthz
//	optional   GET /api/decks (shared deck search, counts in the caller's timezone)
//	protected  everything else; 401 without a token, 404 if its user is gone
func (s *Server) setupRoutes(deps Deps) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	counts := service.NewCountAggregator(deps.Clock)
	users := handler.NewUserHandler(service.NewUserService(deps.Store, deps.Passwords, deps.Tokens, s.logger), s.logger)
	decks := handler.NewDeckHandler(service.NewDeckService(deps.Store, counts, s.logger), s.logger)
	cards := handler.NewCardHandler(service.NewCardService(deps.Store, s.logger), s.logger)
	health := handler.NewHealthHandler(deps.Store, s.logger)

	resolve := handler.ResolveUser(deps.Store.Users(), s.logger)

	s.router.Get("/healthz", health.HandleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth", users.HandleAuth)
		r.Post("/users", users.HandleRegister)
		r.Get("/users", users.HandleList)
		r.Get("/users/{id}", users.HandleGet)

		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(deps.Tokens), resolve)
			r.Get("/decks", decks.HandleSearchShared)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(deps.Tokens), resolve)

			r.Put("/users/{id}", users.HandleUpdate)
			r.Delete("/users/{id}", users.HandleDelete)
			r.Get("/users/{id}/decks", decks.HandleListUserDecks)
			r.Post("/users/{id}/decks/{deckId}", decks.HandleClone)

			r.Post("/decks", decks.HandleCreate)
			r.Get("/decks/{id}", decks.HandleGet)
			r.Put("/decks/{id}", decks.HandleUpdate)
			r.Delete("/decks/{id}", decks.HandleDelete)
			r.Post("/decks/{id}/cards", cards.HandleCreate)
			r.Get("/decks/{id}/cards", cards.HandleList)

			r.Put("/cards", cards.HandleBulkUpdate)
			r.Get("/cards/{id}", cards.HandleGet)
			r.Put("/cards/{id}", cards.HandleUpdate)
			r.Delete("/cards/{id}", cards.HandleDelete)
		})
	})
}

// Run serves until ctx is cancelled (SIGINT/SIGTERM in the serve command),
// then gives in-flight requests ShutdownTimeout to finish.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout),
		WriteTimeout: time.Duration(s.config.WriteTimeout),
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.config.ShutdownTimeout))
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
