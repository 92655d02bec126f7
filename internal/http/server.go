// Package http exposes the chat, widget, lead, and document APIs.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/documents"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/leads"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/ratelimit"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/retrieval"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/subscription"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/tenant"
	"github.com/akibhusain830-ctrl/trulybot.xyz-sub004/internal/usage"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// SigningKey verifies dashboard API tokens.
	SigningKey string
	// WidgetCacheSize bounds the widget-config LRU cache.
	WidgetCacheSize int
	// WidgetCacheTTL bounds how long a cached widget config can lag a
	// tier or styling change.
	WidgetCacheTTL time.Duration
}

// Deps are the services the API fronts.
type Deps struct {
	Orchestrator *retrieval.Orchestrator
	Dispatcher   *leads.Dispatcher
	LeadRepo     leads.Repository
	Bots         tenant.Resolver
	Access       *subscription.Service
	Limiter      *ratelimit.Limiter
	Usage        usage.Recorder
	Documents    *documents.Service
}

// Server provides the HTTP endpoints.
type Server struct {
	echo        *echo.Echo
	deps        Deps
	config      *Config
	signingKey  []byte
	widgetCache *expirable.LRU[string, *widgetConfig]
	logger      *zap.Logger
}

// NewServer creates the API server.
func NewServer(deps Deps, logger *zap.Logger, cfg *Config) (*Server, error) {
	if deps.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}
	if deps.Bots == nil {
		return nil, fmt.Errorf("bot resolver is required")
	}
	if deps.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if deps.Access == nil {
		return nil, fmt.Errorf("access service is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}
	if cfg.WidgetCacheSize <= 0 {
		cfg.WidgetCacheSize = 512
	}
	if cfg.WidgetCacheTTL <= 0 {
		cfg.WidgetCacheTTL = time.Minute
	}

	cache := expirable.NewLRU[string, *widgetConfig](cfg.WidgetCacheSize, nil, cfg.WidgetCacheTTL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	e.Use(metricsMiddleware())

	s := &Server{
		echo:        e,
		deps:        deps,
		config:      cfg,
		signingKey:  []byte(cfg.SigningKey),
		widgetCache: cache,
		logger:      logger,
	}
	s.registerRoutes()
	return s, nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/chat", s.handleChat)
	v1.GET("/widget/:botID/config", s.handleWidgetConfig)

	v1.GET("/leads", s.requireAuth(s.handleListLeads))
	v1.DELETE("/leads/:id", s.requireAuth(s.handleDeleteLead))

	v1.GET("/documents", s.requireAuth(s.handleListDocuments))
	v1.POST("/documents", s.requireAuth(s.handleUpsertDocument))
	v1.DELETE("/documents/:id", s.requireAuth(s.handleDeleteDocument))
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
