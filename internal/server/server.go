// Package server provides the HTTP server and routing for the budget
// optimization API. It is a thin shell: request parsing, CORS, logging and
// response shaping; the engine underneath is pure function calls.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/adbudget/internal/cache"
	"github.com/aristath/adbudget/internal/events"
	"github.com/aristath/adbudget/internal/modules/planning"
)

// Config holds server configuration.
type Config struct {
	Port int
}

// Server represents the HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	log        zerolog.Logger
}

// New creates the server and wires all routes.
func New(
	cfg Config,
	planningHandler *planning.Handler,
	resultCache *cache.Cache,
	bus *events.Bus,
	log zerolog.Logger,
) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    log.With().Str("component", "server").Logger(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	systemHandlers := NewSystemHandlers(resultCache, s.log)
	eventsHandler := NewEventsStreamHandler(bus, s.log)

	s.router.Route("/api", func(r chi.Router) {
		planningHandler.RegisterRoutes(r)
		r.Get("/system/health", systemHandlers.HandleHealth)
		r.Get("/events/stream", eventsHandler.ServeHTTP)
	})

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start begins serving; it blocks until the server stops.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
