// Package gateway is the bridge's HTTP API surface (§4.8): read-only
// catalog lookups, transfer status/history queries, and the two
// signature-producing operations (bridge_in_signature, cancel_transfer)
// that front the coordinator and its connectors.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/bridgecore/coordinator/pkg/coordinator"
)

const defaultRequestTimeout = 60 * time.Second

// Config holds the gateway's HTTP listen parameters.
type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (c Config) shutdownTimeout() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return 30 * time.Second
	}
	return c.ShutdownTimeout
}

// Server wires the coordinator to a chi router and runs it as an
// http.Server with graceful shutdown.
type Server struct {
	cfg         Config
	coordinator *coordinator.Coordinator
	logger      *zap.Logger
}

// NewServer returns a Server ready to Run.
func NewServer(cfg Config, c *coordinator.Coordinator, logger *zap.Logger) *Server {
	return &Server{cfg: cfg, coordinator: c, logger: logger}
}

// Router builds the chi router for the gateway's routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(defaultRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	h := &handlers{coordinator: s.coordinator, logger: s.logger}
	h.registerRoutes(r)

	return r
}

// Run starts the HTTP server in a goroutine and blocks until ctx is
// canceled or the server fails unexpectedly, then performs a graceful
// shutdown with the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Addr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", zap.String("addr", srv.Addr))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("gateway shutdown signal received")
	case runErr = <-errCh:
		if runErr != nil {
			s.logger.Error("gateway server error", zap.Error(runErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.shutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("gateway shutdown: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("gateway server failed: %w", runErr)
	}
	return nil
}
