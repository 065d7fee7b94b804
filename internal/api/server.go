// Package api exposes the HTTP surface: chat CRUD and sharing, the
// streaming turn endpoint, the review inbox, and health probes.
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: identity, logging, and recovery middleware
//   - sse.go: server-sent event writer and turn event sink
//   - health.go: health check endpoints (/health, /ready)
//   - chats.go: chat endpoints
//   - inbox.go: review inbox endpoints
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hivemindhq/hivemind/internal/chat"
	"github.com/hivemindhq/hivemind/internal/inbox"
	"github.com/hivemindhq/hivemind/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:3600"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on
	// keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the REST API.
type Server struct {
	handler http.Handler
	logger  log.Logger
}

// NewServer creates a server with all routes registered.
// Identity headers are required for everything under /api; health
// probes stay open.
func NewServer(chats *chat.Store, runner TurnRunner, reviews *inbox.Service, pool *pgxpool.Pool, logger log.Logger) *Server {
	apiMux := http.NewServeMux()
	NewChatHandler(chats, runner, logger).RegisterRoutes(apiMux)
	NewInboxHandler(reviews, logger).RegisterRoutes(apiMux)

	mux := http.NewServeMux()
	NewHealthHandler(pool, logger).RegisterRoutes(mux)
	mux.Handle("/api/", identityMiddleware(logger)(apiMux))

	return &Server{
		handler: chain(mux, recoveryMiddleware(logger), loggingMiddleware(logger)),
		logger:  logger,
	}
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → logging → identity → handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		// No WriteTimeout: turn responses are long-lived event streams.
		IdleTimeout: IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
