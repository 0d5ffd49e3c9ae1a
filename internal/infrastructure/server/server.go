package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/calendo/core/docs"
	httpHandlers "github.com/calendo/core/internal/adapters/http"
	"github.com/calendo/core/internal/infrastructure/config"
	"github.com/calendo/core/internal/infrastructure/logger"
	"github.com/calendo/core/internal/ports"
)

// TodoBackend is the todo store plus a liveness probe for /ready
type TodoBackend interface {
	ports.TodoService
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	todos    TodoBackend
	registry *prometheus.Registry
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// New creates a new server instance. registry may be nil; one is created
// when metrics are enabled.
func New(cfg *config.Config, todos TodoBackend, registry *prometheus.Registry, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}

	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = customErrorHandler(appLogger)

	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		todos:    todos,
		registry: registry,
	}

	server.setupMiddleware()

	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}

	server.setupRoutes(httpHandlers.NewTodoHandler(todos, appLogger))

	return server, nil
}

// Echo exposes the router, mainly for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			if values.Error != nil {
				s.logger.Errorw("HTTP request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"error", values.Error.Error(),
				)
				return nil
			}
			s.logger.LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP,
				values.Status, float64(values.Latency.Nanoseconds())/1000000)
			return nil
		},
	}))

	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPatch, http.MethodDelete},
	}))

	if s.config.Security.RateLimitRequests > 0 {
		s.echo.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      requestRate(s.config.Security.RateLimitRequests, s.config.Security.RateLimitWindow),
				Burst:     s.config.Security.RateLimitRequests,
				ExpiresIn: 3 * time.Minute,
			}),
			IdentifierExtractor: func(ctx echo.Context) (string, error) {
				return ctx.RealIP(), nil
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return c.JSON(http.StatusForbidden, httpHandlers.ErrorResponse{Error: "rate limit exceeded"})
			},
			DenyHandler: func(c echo.Context, identifier string, err error) error {
				return c.JSON(http.StatusTooManyRequests, httpHandlers.ErrorResponse{Error: "rate limit exceeded"})
			},
		}))
	}

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
	}))

	s.echo.Use(middleware.RequestID())

	if s.config.Server.RequestTimeout > 0 {
		s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
			Timeout: s.config.Server.RequestTimeout,
		}))
	}
}

// requestRate spreads n requests over window. A zero window means per second.
func requestRate(n int, window time.Duration) rate.Limit {
	if window <= 0 {
		return rate.Limit(n)
	}
	return rate.Limit(float64(n) / window.Seconds())
}

func (s *Server) setupRoutes(todoHandler *httpHandlers.TodoHandler) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	todoHandler.Register(s.echo.Group("/api/todo"))
}

func (s *Server) setupMetrics() {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	s.registry.MustRegister(requestsTotal, requestDuration)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if errors.As(err, &he) {
				status = he.Code
			}

			requestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				fmt.Sprintf("%d", status),
			).Inc()

			requestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
			).Observe(time.Since(start).Seconds())

			return err
		}
	})

	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	s.echo.GET("/metrics", echo.WrapHandler(metricsHandler))
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.config.App.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.todos.Ping(c.Request().Context()); err != nil {
		s.logger.Warnw("Readiness check failed", "error", err, "driver", s.config.Database.Driver)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         s.config.Server.Address(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}
	s.logger.Infow("Starting server", "address", srv.Addr, "driver", s.config.Database.Driver)
	return s.echo.StartServer(srv)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"error": "..."}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var (
			code = http.StatusInternalServerError
			msg  = http.StatusText(http.StatusInternalServerError)
		)

		var he *echo.HTTPError
		var ve validator.ValidationErrors
		switch {
		case errors.As(err, &he):
			code = he.Code
			msg = fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = fmt.Errorf("%v, %w", err, he.Internal)
			}
		case errors.As(err, &ve):
			msg = ve.Error()
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, httpHandlers.ErrorResponse{Error: msg})
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}
