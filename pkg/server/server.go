// Package server exposes the plugin execution HTTP API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/rmitchellscott/stationmaster-plugins/internal/version"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/config"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/options"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/plugin"
	"github.com/rmitchellscott/stationmaster-plugins/pkg/settings"
)

// Service is the HTTP API service.
type Service interface {
	// Start initializes and starts the HTTP server.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the server.
	Stop() error
}

// service implements the Service interface.
type service struct {
	log       logrus.FieldLogger
	cfg       config.ServerConfig
	rateCfg   config.RateLimitConfig
	executor  *plugin.Executor
	registry  *plugin.Registry
	projector *settings.Projector
	options   *options.Service
	schemaDir string

	httpServer *http.Server
	mu         sync.Mutex
	done       chan struct{}
	running    bool
}

// NewService creates a new HTTP API service.
func NewService(
	log logrus.FieldLogger,
	cfg config.ServerConfig,
	rateCfg config.RateLimitConfig,
	executor *plugin.Executor,
	registry *plugin.Registry,
	projector *settings.Projector,
	optionsSvc *options.Service,
	schemaDir string,
) Service {
	return &service{
		log:       log.WithField("component", "server"),
		cfg:       cfg,
		rateCfg:   rateCfg,
		executor:  executor,
		registry:  registry,
		projector: projector,
		options:   optionsSvc,
		schemaDir: schemaDir,
		done:      make(chan struct{}),
	}
}

// Start initializes and starts the HTTP server.
func (s *service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()

		return errors.New("server already running")
	}

	s.running = true
	s.mu.Unlock()

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.log.WithFields(logrus.Fields{
		"address": addr,
		"version": version.Version,
		"plugins": len(s.registry.Names()),
	}).Info("Starting plugin server")

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return s.httpServer.Shutdown(context.Background())
	case <-s.done:
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}

// Stop gracefully shuts down the server.
func (s *service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.log.Info("Stopping plugin server")

	close(s.done)
	s.running = false

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Error("Failed to shutdown HTTP server")
		}
	}

	s.log.Info("Plugin server stopped")

	return nil
}

// buildRouter assembles the chi router with middleware and API routes.
func (s *service) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestLogger)

	if s.rateCfg.Enabled {
		limiter := newRateLimiter(s.log, s.rateCfg.RequestsPerMinute, s.rateCfg.BurstSize)
		r.Use(limiter.Handler)
	}

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/plugins", s.handlePlugins)
	r.Post("/api/execute/{name}", s.handleExecute)
	r.Post("/api/plugin_options/fetch", s.handleOptions)

	return r
}

// Compile-time interface compliance check.
var _ Service = (*service)(nil)
