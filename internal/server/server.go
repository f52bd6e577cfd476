package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alkime/voicecollector/internal/config"
	"github.com/alkime/voicecollector/internal/content"
	"github.com/alkime/voicecollector/internal/dataset"
	"github.com/alkime/voicecollector/internal/session"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// SampleStore serves reference sample files.
type SampleStore interface {
	Open(drug string) (io.ReadCloser, error)
	Available(drug string) bool
}

// StatsSource reports how many recordings the dataset holds.
type StatsSource interface {
	Counts(ctx context.Context) ([]dataset.Count, error)
}

// HintSource produces pronunciation hints.
type HintSource interface {
	Hint(ctx context.Context, drug string) (content.Hint, error)
}

// Deps are the services behind the API. Stats and Hints are optional.
type Deps struct {
	Uploader session.Uploader
	Samples  SampleStore
	Stats    StatsSource
	Hints    HintSource
}

// Server represents the HTTP server
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	router   *gin.Engine
	sessions *registry
	deps     Deps
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	if deps.Uploader == nil {
		return nil, errors.New("uploader cannot be nil")
	}

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// Configure proxy trust for production (Fly.io)
	if cfg.IsProduction() {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}
	// Development: no reverse proxy, uses direct client IP

	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		sessions: newRegistry(cfg.SessionTTL, remotePlayer{samples: deps.Samples, timeout: cfg.PlaybackTimeout}, deps.Uploader, logger),
		deps:     deps,
	}

	// Setup middleware and routes
	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()
	setupStaticFiles(router, cfg, logger)

	return server, nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Close ends every open session.
func (s *Server) Close() {
	s.sessions.Close()
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, s *Server) error {
	//nolint:exhaustruct // defaults for the remaining http.Server fields
	srv := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "port", s.config.Port)
		errC <- srv.ListenAndServe()
	}()

	select {
	case err := <-errC:
		s.Close()
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.Close()

	if err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}

	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api/v1")
	{
		api.GET("/drugs", s.handleDrugs)
		api.GET("/samples/:drug", s.handleSample)
		api.GET("/hints/:drug", s.handleHint)
		api.GET("/stats", s.handleStats)

		api.POST("/sessions", s.handleCreateSession)

		sess := api.Group("/sessions/:id", s.loadSession)
		{
			sess.GET("", s.handleGetSession)
			sess.DELETE("", s.handleDeleteSession)

			sess.POST("/info", s.handleSubmitInfo)
			sess.POST("/next", s.handleNext)
			sess.POST("/back", s.handleBack)
			sess.POST("/reset", s.handleReset)

			sess.POST("/sample/play", s.handlePlaySample)
			sess.POST("/recording/play", s.handlePlayRecording)
			sess.GET("/recording", s.handleGetRecording)
			sess.POST("/playback/:token/ended", s.handlePlaybackEnded)

			sess.POST("/capture/start", s.handleCaptureStart)
			sess.POST("/capture/stop", s.handleCaptureStop)
			sess.POST("/retake", s.handleRetake)
			sess.POST("/submit", s.handleSubmit)
		}
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "voicecollector",
		"sessions": s.sessions.Len(),
	})
}
