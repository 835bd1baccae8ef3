package server

import (
	"time"

	"cotador/internal/cache"
	"cotador/internal/config"
	"cotador/internal/handlers"
	"cotador/internal/store"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Server represents the application server
type Server struct {
	echo     *echo.Echo
	db       *sqlx.DB
	config   *config.Config
	logger   zerolog.Logger
	cache    *cache.Cache
	store    *store.Store
	notifier handlers.Notifier
	mailer   handlers.QuotationMailer
}

// New creates a new server instance. notifier may be nil when Gmail is not
// configured; the push endpoint then responds 503.
func New(cfg *config.Config, db *sqlx.DB, logger zerolog.Logger, st *store.Store, notifier handlers.Notifier, mailer handlers.QuotationMailer) *Server {
	return &Server{
		config:   cfg,
		db:       db,
		logger:   logger,
		cache:    cache.New(),
		store:    st,
		notifier: notifier,
		mailer:   mailer,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// API group with /api prefix
	api := s.echo.Group("/api")

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Health endpoints (keep at root level for monitoring)
	s.echo.GET("/healthz", handlers.HealthHandler(s.config.Version))
	s.echo.GET("/healthz/db", handlers.DBHealthHandler(s.db))

	// API endpoints under /api prefix
	api.GET("/", handlers.RootHandler(s.config.Version))

	cacheTTL := time.Duration(s.config.QuotationCacheTTLSec) * time.Second
	api.GET("/quotations", handlers.QuotationsHandler(s.store, s.cache, cacheTTL))
	api.POST("/quotations", handlers.CreateQuotationHandler(s.store, s.mailer, s.cache, s.logger))
	api.GET("/quotations/:id/audit", handlers.AuditTrailHandler(s.store))

	if s.notifier != nil {
		api.POST("/notifications/gmail", handlers.GmailNotificationHandler(s.notifier, s.logger))
	} else {
		api.POST("/notifications/gmail", func(c echo.Context) error {
			return echo.NewHTTPError(503, "gmail integration not configured")
		})
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown() error {
	if s.echo == nil {
		return nil
	}
	return s.echo.Close()
}
