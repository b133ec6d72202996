// Package main provides the orchestrator server implementation.
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/loglattice/orchestrator/api/handlers"
	"github.com/loglattice/orchestrator/config"
	"github.com/loglattice/orchestrator/embedding"
	"github.com/loglattice/orchestrator/graphstore"
	"github.com/loglattice/orchestrator/internal/metrics"
	"github.com/loglattice/orchestrator/internal/server"
	"github.com/loglattice/orchestrator/orchestrator"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server is the orchestrator's HTTP server: one mux serving the chat and
// health surfaces, plus a second mux for /metrics.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	orchestrator *orchestrator.Orchestrator
	store        *graphstore.Store
	embedder     embedding.Provider

	httpManager    *server.Manager
	metricsManager *server.Manager

	chatHandler   *handlers.ChatHandler
	healthHandler *handlers.HealthHandler

	metricsCollector *metrics.Collector

	wg sync.WaitGroup
}

// NewServer wires the orchestrator and its collaborators into a Server
// ready to Start.
func NewServer(cfg *config.Config, logger *zap.Logger, o *orchestrator.Orchestrator, store *graphstore.Store, embedder embedding.Provider) *Server {
	return &Server{cfg: cfg, logger: logger, orchestrator: o, store: store, embedder: embedder}
}

// Start initializes handlers and brings up the HTTP and metrics listeners.
func (s *Server) Start() error {
	s.metricsCollector = metrics.NewCollector("orchestrator", s.logger)

	if err := s.initHandlers(); err != nil {
		return fmt.Errorf("failed to init handlers: %w", err)
	}
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("all servers started",
		zap.String("http_addr", s.cfg.Server.Addr),
		zap.String("metrics_addr", s.cfg.Server.MetricsAddr),
	)
	return nil
}

func (s *Server) initHandlers() error {
	s.chatHandler = handlers.NewChatHandler(s.orchestrator, s.logger)

	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewDatabaseHealthCheck("graphstore", s.store.Ping))
	s.healthHandler.RegisterCheck(handlers.NewDatabaseHealthCheck("embedding", func(ctx context.Context) error {
		_, err := s.embedder.Embed(ctx, "healthcheck")
		return err
	}))

	s.logger.Info("handlers initialized")
	return nil
}

func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.healthHandler.HandleHealth)
	// spec.md §6's /healthz runs the registered checks (graph store ping +
	// embedding provider warm check), so it is routed to the same checked
	// path as /ready rather than the teacher's bare liveness response.
	mux.HandleFunc("/healthz", s.healthHandler.HandleReady)
	mux.HandleFunc("/ready", s.healthHandler.HandleReady)
	mux.HandleFunc("/readyz", s.healthHandler.HandleReady)
	mux.HandleFunc("/version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	mux.HandleFunc("/v1/chat/completions", s.chatHandler.HandleCompletion)

	skipAuthPaths := []string{"/health", "/healthz", "/ready", "/readyz", "/version", "/metrics"}
	handler := Chain(mux,
		Recovery(s.logger),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		CORS(s.cfg.Server.CORSAllowedOrigins),
		RateLimiter(context.Background(), s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst, s.logger),
		APIKeyAuth(s.cfg.Server.APIKeys, skipAuthPaths, false, s.logger),
	)

	serverConfig := server.Config{
		Addr:            s.cfg.Server.Addr,
		ReadTimeout:     s.cfg.Server.ReadTimeout(),
		WriteTimeout:    s.cfg.Server.WriteTimeout(),
		IdleTimeout:     s.cfg.Server.IdleTimeout(),
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout(),
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)
	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.String("addr", s.cfg.Server.Addr))
	return nil
}

func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            s.cfg.Server.MetricsAddr,
		ReadTimeout:     s.cfg.Server.ReadTimeout(),
		WriteTimeout:    s.cfg.Server.WriteTimeout(),
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout(),
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)
	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("metrics server started", zap.String("addr", s.cfg.Server.MetricsAddr))
	return nil
}

// WaitForShutdown blocks until the HTTP manager observes a shutdown signal,
// then runs Shutdown.
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}
	s.Shutdown()
}

// Shutdown gracefully tears down both listeners and the graph store pool.
func (s *Server) Shutdown() {
	s.logger.Info("starting graceful shutdown")

	ctx := context.Background()

	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
	if s.store != nil {
		s.store.Close()
	}

	s.wg.Wait()
	s.logger.Info("graceful shutdown completed")
}
