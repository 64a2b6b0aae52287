// Package api provides the HTTP surface of the gateway: the browser-facing
// scan and print forms plus a small JSON API.
package api

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/mvarga-dev/printscan/internal/config"
	"github.com/mvarga-dev/printscan/internal/escl"
	"github.com/mvarga-dev/printscan/internal/ipp"
)

//go:embed templates
var templateFS embed.FS

// Server represents the HTTP API server.
type Server struct {
	cfg      config.ServerConfig
	scanCfg  config.ScannerConfig
	scanner  *escl.Orchestrator
	printer  *ipp.Client
	settings *config.Store
	router   *gin.Engine
	tmpl     *template.Template

	// Scanner and printer each take one job at a time; concurrent requests
	// queue here instead of colliding at the device.
	scanMu  sync.Mutex
	printMu sync.Mutex

	scanLimiter *rate.Limiter
}

// New creates a new API server.
func New(cfg config.ServerConfig, scanCfg config.ScannerConfig, scanner *escl.Orchestrator, printer *ipp.Client, settings *config.Store) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:      cfg,
		scanCfg:  scanCfg,
		scanner:  scanner,
		printer:  printer,
		settings: settings,
		router:   gin.New(),
		tmpl:     template.Must(template.ParseFS(templateFS, "templates/*.html")),
		// A flatbed pass takes tens of seconds; more than a couple of scan
		// requests per minute means a stuck client hammering the device.
		scanLimiter: rate.NewLimiter(rate.Limit(0.2), 3),
	}

	s.setupRoutes()
	return s
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(loggingMiddleware())

	s.router.GET("/health", s.healthHandler)

	s.router.GET("/", s.printFormHandler)
	s.router.POST("/", s.maxUpload(), s.printHandler)

	s.router.GET("/scan", s.scanFormHandler)
	s.router.POST("/scan", s.scanRateLimit(), s.scanFormSubmitHandler)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/status", s.statusHandler)
		v1.GET("/settings", s.getSettingsHandler)
		v1.PUT("/settings", s.putSettingsHandler)
		v1.POST("/scan", s.scanRateLimit(), s.scanJSONHandler)
		v1.POST("/print", s.maxUpload(), s.printHandler)
	}
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		slog.Info("request completed",
			"id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// maxUpload caps the request body to the configured upload limit.
func (s *Server) maxUpload() gin.HandlerFunc {
	limit := int64(s.cfg.MaxUploadMB) << 20
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

func (s *Server) scanRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.scanLimiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many scan requests",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "printscan",
	})
}

// abortWithError maps gateway errors onto HTTP statuses. Requests the caller
// got wrong are 400s; everything downstream of us is a 500.
func abortWithError(c *gin.Context, err error) {
	var (
		validationErr *escl.ValidationError
		optionErr     *ipp.OptionError
	)
	status := http.StatusInternalServerError
	if errors.As(err, &validationErr) || errors.As(err, &optionErr) {
		status = http.StatusBadRequest
	}

	slog.Error("request failed",
		"id", c.GetString("request_id"),
		"path", c.Request.URL.Path,
		"status", status,
		"err", err,
	)
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
