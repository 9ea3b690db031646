// Package api exposes the risk evaluation engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/dvo-fracture-risk-server/internal/dataset"
	"github.com/dvo-fracture-risk-server/internal/domain"
	"github.com/dvo-fracture-risk-server/internal/feedback"
)

// Server represents the HTTP server
type Server struct {
	logger        *logrus.Logger
	configManager domain.ConfigManager
	evaluator     domain.RiskEvaluator
	catalog       *dataset.Catalog
	feedbackStore feedback.Store
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. feedbackStore may be nil, in
// which case the feedback endpoints respond with 503.
func NewServer(
	logger *logrus.Logger,
	configManager domain.ConfigManager,
	evaluator domain.RiskEvaluator,
	catalog *dataset.Catalog,
	feedbackStore feedback.Store,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	registerValidations()

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestIDMiddleware())
	router.Use(loggingMiddleware(logger))
	if cfg.RateLimit.Enabled {
		router.Use(rateLimitMiddleware(cfg.RateLimit))
	}

	server := &Server{
		logger:        logger,
		configManager: configManager,
		evaluator:     evaluator,
		catalog:       catalog,
		feedbackStore: feedbackStore,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// registerValidations installs the request-level validators the binding
// tags refer to. Registration is idempotent.
func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("sexvalue", func(fl validator.FieldLevel) bool {
			return domain.Sex(fl.Field().String()).IsValid()
		})
	}
}

// Router exposes the underlying handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/evaluate", s.handleEvaluate)
		v1.POST("/selection/toggle", s.handleToggleSelection)
		v1.GET("/risk-factors", s.handleListRiskFactors)
		v1.GET("/substances", s.handleListSubstances)
		v1.GET("/substances/:id", s.handleGetSubstance)

		fb := v1.Group("/feedback")
		{
			fb.POST("", s.handleSaveFeedback)
			fb.GET("", s.handleListFeedback)
			fb.GET("/summary", s.handleFeedbackSummary)
			fb.DELETE("/:id", s.handleDeleteFeedback)
		}
	}
}
