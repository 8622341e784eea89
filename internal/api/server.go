// Package api serves the lane pipeline over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ironsheep/lane-overlay/internal/config"
	"github.com/ironsheep/lane-overlay/internal/pipeline"
)

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server
	log    zerolog.Logger

	healthHandler *HealthHandler
	uploadHandler *UploadHandler
}

func NewServer(cfg *config.Config, processor *pipeline.Processor, logger zerolog.Logger, version string) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger = logger.With().Str("component", "http").Logger()
	s := &Server{
		config:        cfg,
		router:        gin.New(),
		log:           logger,
		healthHandler: NewHealthHandler(version),
		uploadHandler: NewUploadHandler(processor, cfg.MaxUploadBytes, logger),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(Recovery(s.log))
	s.router.Use(Logger(s.log))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.POST("/upload", s.uploadHandler.Upload)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Stop is called. It returns nil after a
// clean shutdown.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.config.HTTPPort).Msg("Starting lane overlay API")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	s.log.Info().Msg("Stopping lane overlay API")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
