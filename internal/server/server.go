// Package server exposes the lint engine over HTTP so CI configuration can be
// validated without a checkout, one document at a time.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/xjubep/ciguard/internal/lint"
	"github.com/xjubep/ciguard/internal/observability"
)

// Server validates CI documents posted by clients against the rule registry.
type Server struct {
	registry *lint.Registry
	logger   zerolog.Logger
	router   *gin.Engine
	started  time.Time
}

// New wires the HTTP surface around a rule registry.
func New(registry *lint.Registry, logger zerolog.Logger) (*Server, error) {
	if registry == nil {
		return nil, errors.New("server: registry is required")
	}
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		registry: registry,
		logger:   logger,
		router:   gin.New(),
		started:  time.Now(),
	}
	s.router.Use(
		gin.Recovery(),
		observability.RequestID(),
		observability.RequestLogger(logger),
		observability.RequestMetricsMiddleware(),
	)
	s.registerRoutes()
	return s, nil
}

// Router returns the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.GET("/rules", s.handleRules)
	v1.POST("/workflows/validate", s.handleValidateWorkflow)
	v1.POST("/pipelines/validate", s.handleValidatePipeline)
	v1.POST("/owners/validate", s.handleValidateOwners)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	observability.RegisterMetrics()
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("server listening")
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
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info().Msg("server stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.started).String(),
		"service": "ciguard",
	})
}
