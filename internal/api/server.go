package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dhima/proactive-scheduler/internal/api/handlers"
	"github.com/dhima/proactive-scheduler/internal/api/middleware"
	"github.com/dhima/proactive-scheduler/internal/logging"
	"github.com/dhima/proactive-scheduler/pkg/config"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps carries the wired services the HTTP surface exposes.
type Deps struct {
	Triggers handlers.TriggerService
	Results  handlers.ResultService
	State    handlers.StateSource
	Runner   handlers.JobRunner
	Gateway  handlers.AlertGateway
}

// Server orchestrates HTTP routing for the scheduler's local API.
type Server struct {
	config config.App
	logger logging.Logger
	router *gin.Engine
}

// NewServer wires the API routes to the given dependencies.
func NewServer(cfg config.App, logger logging.Logger, deps Deps) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	s := &Server{
		config: cfg,
		logger: logger,
	}
	s.setupRouter(deps)
	return s
}

// setupRouter configures the Gin router with middleware and routes.
func (s *Server) setupRouter(deps Deps) {
	router := gin.New()

	zapLogger := s.logger.Zap()

	// Global middleware (order matters!)
	// 1. Recovery - must be first to catch panics from other middleware
	router.Use(ginzap.RecoveryWithZap(zapLogger, true))

	// 2. Request ID - inject unique ID for tracing
	router.Use(middleware.RequestID())

	// 3. Logging - log all requests with structured fields
	router.Use(ginzap.Ginzap(zapLogger, time.RFC3339, true))

	// 4. CORS - handle cross-origin requests from the local UI
	router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health endpoint (no /api/v1 prefix)
	router.GET("/health", handlers.NewHealthHandler(s.logger).Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		triggerHandler := handlers.NewTriggerHandler(s.logger, deps.Triggers)
		schedulerHandler := handlers.NewSchedulerHandler(s.logger, deps.State, deps.Runner, deps.Gateway)
		resultHandler := handlers.NewResultHandler(s.logger, deps.Results)

		triggerRoutes := v1.Group("/triggers")
		{
			triggerRoutes.POST("", triggerHandler.CreateTrigger)
			triggerRoutes.GET("", triggerHandler.ListTriggers)
			triggerRoutes.GET("/:id", triggerHandler.GetTrigger)
			triggerRoutes.PUT("/:id", triggerHandler.UpdateTrigger)
			triggerRoutes.DELETE("/:id", triggerHandler.DeleteTrigger)
			triggerRoutes.POST("/:id/run", schedulerHandler.RunNow)
		}

		schedulerRoutes := v1.Group("/scheduler")
		{
			schedulerRoutes.GET("/state", schedulerHandler.GetState)
		}

		alertRoutes := v1.Group("/alerts")
		{
			alertRoutes.GET("/:id", schedulerHandler.GetAlert)
			alertRoutes.POST("/:id/action", schedulerHandler.AlertAction)
		}

		notificationRoutes := v1.Group("/notifications")
		{
			notificationRoutes.GET("/status", schedulerHandler.NotificationStatus)
		}

		resultRoutes := v1.Group("/results")
		{
			resultRoutes.GET("", resultHandler.ListResults)
			resultRoutes.GET("/stats", resultHandler.GetStats)
			resultRoutes.GET("/:id", resultHandler.GetResult)
		}
	}

	s.router = router
}

// Router exposes the HTTP handler, primarily for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Serve runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	addr := ":" + s.config.APIPort

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server",
			zap.String("address", addr),
			zap.String("environment", s.config.Environment),
			zap.String("log_level", s.config.LogLevel),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	s.logger.Info("API server stopped")
	return nil
}
