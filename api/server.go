// Package api exposes the support agent over HTTP.
//
// Endpoints:
//
//	POST /api/chat                    - run one conversational turn
//	POST /api/sessions                - create a session
//	GET  /api/sessions/{id}/history   - conversation transcript
//	POST /api/sessions/{id}/clear     - reset a session
//	GET  /api/tools                   - registered tool catalog
//	GET  /health                      - liveness probe
//	GET  /ready                       - readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (logging, recovery, CORS)
//   - health.go: health check endpoints
//   - session.go: session management endpoints
//   - chat.go: conversational turn endpoint
//   - tools.go: tool catalog endpoint
//   - response.go: JSON response helpers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nimbusflow/support-agent/internal/log"
	"github.com/nimbusflow/support-agent/internal/session"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8080"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Model round trips with regeneration can take a while.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Server is the HTTP server for the support agent's REST API.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	// Handlers
	health   *HealthHandler
	sessions *SessionHandler
	chat     *ChatHandler
	tools    *ToolsHandler

	corsOrigins []string
}

// NewServer creates a new HTTP server with all routes registered.
// pool may be nil; the readiness probe then reports unavailable.
func NewServer(runner TurnRunner, store *session.Store, lister ToolLister, pool *pgxpool.Pool, corsOrigins []string, logger log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:         mux,
		logger:      logger,
		health:      NewHealthHandler(pool, logger),
		sessions:    NewSessionHandler(store, logger),
		chat:        NewChatHandler(runner, store, logger),
		tools:       NewToolsHandler(lister),
		corsOrigins: corsOrigins,
	}

	s.health.RegisterRoutes(mux)
	s.sessions.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.tools.RegisterRoutes(mux)

	return s
}

// Handler returns the HTTP handler with middleware applied.
// Middleware order: recovery → CORS → logging → handler
func (s *Server) Handler() http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		recoveryMiddleware(s.logger),
	}
	if len(s.corsOrigins) > 0 {
		middlewares = append(middlewares, corsMiddleware(s.corsOrigins))
	}
	middlewares = append(middlewares, loggingMiddleware(s.logger))
	return chain(s.mux, middlewares...)
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
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
