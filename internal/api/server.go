package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/noisycontents/uzu-orders/internal/api/handlers"
	"github.com/noisycontents/uzu-orders/internal/api/middleware"
	"github.com/noisycontents/uzu-orders/internal/config"
	"github.com/noisycontents/uzu-orders/internal/logger"
	"github.com/noisycontents/uzu-orders/internal/pipeline"
)

// Server exposes the sync pipeline over HTTP: trigger endpoints plus an
// in-memory run registry for inspection.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	handler http.Handler
	server  *http.Server
}

func New(cfg *config.Config, logger *logger.Logger, runner *pipeline.Runner) *Server {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))

	syncHandler := handlers.NewSyncHandler(runner, handlers.NewRegistry(), logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		sync := v1.Group("/sync")
		{
			sync.POST("/imweb", syncHandler.Imweb)
			sync.POST("/woocommerce", syncHandler.Woocommerce)
			sync.POST("/daily", syncHandler.Daily)
		}
		v1.GET("/runs", syncHandler.ListRuns)
		v1.GET("/runs/:id", syncHandler.GetRun)
	}

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	return &Server{
		config:  cfg,
		logger:  logger,
		handler: c.Handler(router),
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.handler,
		// Sync runs execute inline, so a response may take as long as a
		// full collection sweep.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Handler returns the wrapped router, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}
