// Package api exposes the read-only status API: health, ledger summary
// and in-process metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Juan7731/bol.com/config"
	"github.com/Juan7731/bol.com/internal/ledger"
	"github.com/Juan7731/bol.com/internal/metrics"
	"github.com/Juan7731/bol.com/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Server represents the HTTP status server
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new status server
func NewServer(cfg config.Config, ldg *ledger.Ledger, m *metrics.Metrics, tracer tracing.Tracer) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	h := newHandler(ldg, m, tracer)
	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	api.GET("/metrics", h.getMetrics)
	api.GET("/ledger/summary", h.ledgerSummary)
	api.GET("/ledger/count", h.ledgerCount)

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:    cfg.API.Address,
			Handler: router,
		},
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	log.Info().Str("address", s.httpServer.Addr).Msg("Starting status API")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}
