// HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/alphamind/gateway/internal/infra/config"
)

// Server wraps the HTTP server and the database it owns.
type Server struct {
	cfg  config.Config
	db   *sql.DB
	http *http.Server
	log  zerolog.Logger
}

// NewServer creates the HTTP server over an already-wired handler.
// WriteTimeout of zero is deliberate for configs that stream: SSE and
// WebSocket responses have no bounded duration.
func NewServer(cfg config.Config, handler http.Handler, db *sql.DB, log zerolog.Logger) *Server {
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		cfg:  cfg,
		db:   db,
		http: httpServer,
		log:  log.With().Str("component", "server").Logger(),
	}
}

// Start runs the HTTP server and blocks until it stops. A shutdown
// initiated via Shutdown is not an error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("starting HTTP server")
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down server")

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("database close error: %w", err)
	}

	s.log.Info().Msg("server shutdown complete")
	return nil
}
