// Package relay serves the cross-origin relay used by browser front ends:
// a health check and a validate endpoint that forwards entry lists to the
// INIST Biblio-Ref service unchanged.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matsen/bibcheck/internal/metrics"
)

// ServiceName is reported by the health check.
const ServiceName = "bibcheck-relay"

const (
	DefaultINISTURL = "https://biblio-ref.services.istex.fr/v1/validate"
	DefaultTimeout  = 30 * time.Second

	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Server is the relay HTTP service.
type Server struct {
	engine   *gin.Engine
	inist    *forwarder
	logger   *zap.Logger
	metrics  *metrics.Metrics
	origins  []string
	inistURL string
	client   *http.Client
	timeout  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithINISTURL sets the upstream validate endpoint.
func WithINISTURL(u string) Option {
	return func(s *Server) {
		if u != "" {
			s.inistURL = u
		}
	}
}

// WithHTTPClient sets the client used to reach INIST.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.client = c
		}
	}
}

// WithTimeout bounds each upstream request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithAllowedOrigins enables CORS for the given origins. "*" allows any
// origin. Without origins no CORS headers are sent.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets the request and error log.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records request counts and latency and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New builds the relay and its routes.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   zap.NewNop(),
		inistURL: DefaultINISTURL,
		client:   &http.Client{},
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.inist = &forwarder{url: s.inistURL, client: s.client, timeout: s.timeout}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.CustomRecoveryWithWriter(io.Discard, s.recovered))
	r.Use(s.requestLog())
	if len(s.origins) > 0 {
		r.Use(cors.New(corsConfig(s.origins)))
	}

	r.GET("/health", s.health)
	r.POST("/v1/validate", s.validate)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	s.engine = r
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("relay listening",
			zap.String("addr", addr),
			zap.String("inist", s.inistURL))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("relay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("relay shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down relay: %w", err)
	}
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.ObserveRelay(route, status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Warn("relay request", fields...)
		} else {
			s.logger.Info("relay request", fields...)
		}
	}
}

func (s *Server) recovered(c *gin.Context, err any) {
	s.logger.Error("relay handler panicked", zap.Any("panic", err), zap.String("path", c.Request.URL.Path))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": ServiceName})
}
