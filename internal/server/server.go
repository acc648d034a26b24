// Package server exposes dataset management, training, prediction and
// analytics over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/haskel/ensemblr/internal/analytics"
	"github.com/haskel/ensemblr/internal/bom"
	"github.com/haskel/ensemblr/internal/capacity"
	"github.com/haskel/ensemblr/internal/config"
	"github.com/haskel/ensemblr/internal/dataset"
	"github.com/haskel/ensemblr/internal/events"
	"github.com/haskel/ensemblr/internal/history"
	"github.com/haskel/ensemblr/internal/inference"
	"github.com/haskel/ensemblr/internal/registry"
	"github.com/haskel/ensemblr/internal/server/middleware"
	"github.com/haskel/ensemblr/internal/storage"
	"github.com/haskel/ensemblr/internal/training"
)

// HistoryReader is the read side of the training ledger.
type HistoryReader interface {
	Recent(ctx context.Context, variant string, limit int) ([]history.Run, error)
	StatsByVariant(ctx context.Context) (map[string]history.Stats, error)
}

// Deps are the components the server routes to. History, Events and Gate
// are optional.
type Deps struct {
	Registry     *registry.Registry
	Dataset      *dataset.DirProvider
	Storage      *storage.Store
	Orchestrator *training.Orchestrator
	Loader       *inference.Loader
	Predictor    *inference.Predictor
	Ranker       *analytics.Ranker
	BOM          *bom.Builder

	History HistoryReader
	Events  *events.Hub
	Gate    *capacity.Gate
}

type Server struct {
	httpServer *http.Server
	deps       Deps
	config     *config.Config
	logger     *slog.Logger
	version    string
	authConfig *middleware.AuthConfig
}

func New(cfg *config.Config, deps Deps, logger *slog.Logger, version string) *Server {
	s := &Server{
		deps:       deps,
		config:     cfg,
		logger:     logger,
		version:    version,
		authConfig: middleware.NewAuthConfig(cfg.Auth.Enabled, cfg.Auth.User, cfg.Auth.Password),
	}

	handler := middleware.Chain(
		s.setupRoutes(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
		middleware.SecurityHeaders(),
		middleware.RateLimit(middleware.RateLimitConfig{
			Enabled:           cfg.Server.RateLimit.Enabled,
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
			PerIP:             cfg.Server.RateLimit.PerIP,
		}),
		middleware.MaxBody(cfg.MaxUploadBytes()),
		middleware.Auth(s.authConfig, "/health", "/ready", "/debug/*"),
	)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.InferenceTimeout() + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ReloadConfig applies settings that can change at runtime. Listen address,
// storage layout and backends require a restart.
func (s *Server) ReloadConfig(cfg *config.Config) {
	s.logger.Info("reloading configuration")

	s.authConfig.Update(cfg.Auth.Enabled, cfg.Auth.User, cfg.Auth.Password)
	if s.deps.Gate != nil {
		s.deps.Gate.UpdateThresholds(cfg.Preflight.Thresholds)
	}
	s.config = cfg

	s.logger.Info("configuration reloaded", "auth_enabled", cfg.Auth.Enabled)
}

func (s *Server) Start() error {
	s.logger.Info("server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
