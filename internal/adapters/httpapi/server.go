package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/CodeByHashir/SpamGuard-EmailSpam-Detection/internal/core"
)

// Server exposes the guard service over HTTP. It implements the
// ports.EmailGateway interface.
type Server struct {
	service    *core.GuardService
	logger     *zap.Logger
	listenAddr string
	httpServer *http.Server
}

// NewServer creates a new HTTP API server
func NewServer(service *core.GuardService, logger *zap.Logger, listenAddr string) *Server {
	s := &Server{
		service:    service,
		logger:     logger,
		listenAddr: listenAddr,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/analyze-email", s.handleAnalyzeEmail)
	r.Post("/api/refine-email", s.handleRefineEmail)
	r.Post("/api/batch-analyze", s.handleBatchAnalyze)

	s.httpServer = &http.Server{
		Addr:    listenAddr,
		Handler: r,
	}

	return s
}

// Handler returns the router, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP API starting", zap.String("address", s.listenAddr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
