// Package server exposes the router registry over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zen-systems/routerd/pkg/registry"
	"go.uber.org/zap"
)

// Options configures a Server.
type Options struct {
	// RateLimit is the per-client requests per second allowed on the route
	// endpoint. Zero disables limiting.
	RateLimit float64
	Burst     int
	Logger    *zap.Logger
}

// Server is the admin HTTP server.
type Server struct {
	engine    *gin.Engine
	registry  *registry.Registry
	metrics   *Metrics
	logger    *zap.Logger
	startTime time.Time
}

// New builds the gin engine and registers every endpoint.
func New(reg *registry.Registry, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		engine:    gin.New(),
		registry:  reg,
		metrics:   NewMetrics(),
		logger:    logger,
		startTime: time.Now(),
	}
	s.engine.Use(gin.Recovery(), RequestID(), Logger(logger), s.metrics.Middleware())

	var limiter gin.HandlerFunc
	if opts.RateLimit > 0 {
		limiter = NewRateLimit(opts.RateLimit, opts.Burst, s.metrics, logger).Middleware()
	}
	NewRouterHandler(reg, s.metrics, limiter, logger).RegisterRoutes(&s.engine.RouterGroup)

	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", s.metrics.Handler())
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"routers": len(s.registry.List()),
		"live":    s.registry.LiveCount(),
		"uptime":  time.Since(s.startTime).Round(time.Second).String(),
	})
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("admin server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
