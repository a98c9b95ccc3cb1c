// Package http exposes the accounting core over a JSON API. It is a thin
// adapter: handlers translate requests into calls on the pipeline
// components and never hold state of their own.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hypervisual/fincore/internal/classifier"
	"github.com/hypervisual/fincore/internal/config"
	"github.com/hypervisual/fincore/internal/extractor"
	"github.com/hypervisual/fincore/internal/ledger"
	"github.com/hypervisual/fincore/internal/matcher"
	"github.com/hypervisual/fincore/internal/suggester"
)

// Server is the HTTP adapter over the pipeline components.
type Server struct {
	config     config.ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	logger     *zap.Logger
}

// Pipeline bundles the components the handlers call. Store may be nil,
// in which case the persistence-backed routes answer 503.
type Pipeline struct {
	Classifier    *classifier.Classifier
	Extractor     *extractor.Extractor
	Matcher       *matcher.Matcher
	Suggester     *suggester.Suggester
	Store         *ledger.Store
	MinConfidence float64 // extraction below this is parked for review
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(cfg config.ServerConfig, pipeline Pipeline, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	s := &Server{
		config: cfg,
		router: router,
		logger: logger,
	}

	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())
	router.Use(corsMiddleware())

	s.setupRoutes(pipeline)
	return s
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) setupRoutes(pipeline Pipeline) {
	handlers := NewHandlers(pipeline, s.logger)

	s.router.GET("/health", handlers.HealthCheck)

	api := s.router.Group("/api/v1")
	{
		api.POST("/classify", handlers.Classify)
		api.POST("/extract", handlers.Extract)
		api.POST("/match", handlers.Match)
		api.POST("/suggest", handlers.Suggest)
		api.POST("/vat", handlers.VAT)
		api.POST("/reference/validate", handlers.ValidateReference)

		api.POST("/reconcile", handlers.Reconcile)
		api.GET("/review", handlers.ListReviewQueue)
		api.POST("/review/:id", handlers.ReviewExtraction)
	}
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", zap.String("address", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
