// Package server provides a gin-based HTTP server with graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	httpopts "github.com/kart-io/librarian/pkg/options/server/http"
)

// Server wraps a gin engine and an http.Server with lifecycle management.
type Server struct {
	engine *gin.Engine
	srv    *http.Server
	opts   *httpopts.Options
}

// New creates a Server from the given HTTP options. The engine comes with
// recovery, request-id and request logging middleware installed.
func New(opts *httpopts.Options) *Server {
	gin.SetMode(opts.Mode)

	engine := gin.New()
	engine.Use(Recovery(), RequestID(), Logger())

	return &Server{
		engine: engine,
		opts:   opts,
		srv: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			IdleTimeout:  opts.IdleTimeout,
		},
	}
}

// Engine returns the underlying gin engine for route registration.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP server and blocks until the context is canceled or the
// listener fails. Shutdown drains in-flight requests within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("HTTP server shutdown failed", "error", err.Error())
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
