package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"trade-copier-go/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server provides the HTTP interface of the relay.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// NewServer wires the routes for svc onto a gin engine.
func NewServer(cfg config.Server, svc Copier, logger *zap.Logger) *Server {
	logger = logger.Named("api")
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(logger), requestTimeout(cfg.RequestTimeout))
	NewAPIHandler(logger, svc).Register(engine)

	return &Server{
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           engine,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// ListenAndServe blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
