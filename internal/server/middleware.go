package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alkime/voicecollector/internal/config"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// setupSecurityMiddleware configures and applies security middleware to the router
func setupSecurityMiddleware(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	// Configure HSTS for production only
	stsSeconds := int64(0)
	if cfg.IsProduction() {
		stsSeconds = int64(cfg.HSTSMaxAge)
	}

	// Create and apply security middleware
	secureMiddleware := secure.New(secure.Config{
		STSSeconds:            stsSeconds,
		STSIncludeSubdomains:  true,
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: config.BuildCSP(cfg.CSPMode),
		// The wizard records from the page itself.
		FeaturePolicy: "microphone=(self)",
	})
	router.Use(secureMiddleware)

	logger.Debug("Configured security middleware",
		"hsts_enabled", cfg.IsProduction(),
		"csp_mode", cfg.CSPMode,
	)
}

// setupStaticFiles serves the browser front end. API routes match first;
// unmatched paths fall through to the public directory.
func setupStaticFiles(router *gin.Engine, cfg *config.Config, logger *slog.Logger) {
	if cfg.PublicDir == "" {
		return
	}

	router.NoRoute(static.Serve("/", static.LocalFile(cfg.PublicDir, false)))
	logger.Debug("Serving static files", "dir", cfg.PublicDir)
}

// requestLogger logs one line per request through slog. Server errors log at
// error level, client errors at warn.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
		}
		if id := c.Param("id"); id != "" {
			attrs = append(attrs, "session", id)
		}

		logger.Log(c.Request.Context(), level, "request", attrs...)
	}
}
