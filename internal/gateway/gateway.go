// Package gateway exposes the runtime over HTTP: memory and conversation
// CRUD, chat, streaming chat, the reasoning endpoint, session listing,
// health, and metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vboarder/vboarder/internal/agent"
	"github.com/vboarder/vboarder/internal/config"
	"github.com/vboarder/vboarder/internal/knowledge"
	"github.com/vboarder/vboarder/internal/memory"
	"github.com/vboarder/vboarder/internal/router"
	"github.com/vboarder/vboarder/internal/session"
)

const shutdownTimeout = 10 * time.Second

// GeneratorResolver hands out a Generator for a model name. Satisfied by
// provider.Resolver; tests inject stubs.
type GeneratorResolver interface {
	For(model string) agent.Generator
}

// Server is the HTTP gateway. All dependencies are injected; nothing is
// resolved lazily.
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	memory    *memory.Store
	sessions  *session.Manager
	know      *knowledge.Store
	resolver  GeneratorResolver
	metrics   *Metrics
	startedAt time.Time
	now       func() time.Time

	httpServer *http.Server
}

// NewServer wires a gateway. know may be nil when the knowledge store is
// disabled; every other dependency is required.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	mem *memory.Store,
	sessions *session.Manager,
	know *knowledge.Store,
	resolver GeneratorResolver,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger.With("component", "gateway"),
		memory:    mem,
		sessions:  sessions,
		know:      know,
		resolver:  resolver,
		metrics:   NewMetrics(),
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Handler builds the chi mux with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))

	r.Get("/agents", s.handleListAgents)

	r.Route("/api", func(r chi.Router) {
		r.Post("/memory", s.handleMemoryUpdate)
		r.Get("/memory", s.handleMemoryGet)
		r.Delete("/memory", s.handleMemoryReset)
		r.Post("/conversation", s.handleConversationAppend)
		r.Get("/conversation", s.handleConversationGet)
		r.Get("/context", s.handleContext)
		r.Post("/reason", s.handleReason)
	})

	r.Post("/chat/{agent}", s.handleChat)
	r.Get("/chat/{agent}/stream", s.handleChatStream)

	r.Get("/sessions", s.handleListAllSessions)
	r.Get("/sessions/{agent}", s.handleListSessions)
	r.Delete("/sessions/{agent}/{session_id}", s.handleDeleteSession)

	return r
}

// Start binds the listener and serves until Shutdown. The bind error is
// returned synchronously; serve errors are logged.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Server.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // model generation is slow
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", s.cfg.Server.Listen, err)
	}

	go func() {
		s.logger.Info("listening", "addr", s.cfg.Server.Listen)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("serve error", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

// loopConfig merges per-request overrides onto the configured defaults.
func (s *Server) loopConfig(maxIterations int, threshold float64) agent.LoopConfig {
	cfg := s.cfg.Reasoning.LoopConfig()
	if maxIterations > 0 {
		cfg.MaxIterations = maxIterations
	}
	if threshold > 0 {
		cfg.ConfidenceThreshold = threshold
	}
	return cfg
}

// slots returns the configured slot table.
func (s *Server) slots() router.SlotTable {
	return s.cfg.Models.Slots
}
