// Package api provides the relay's HTTP surface: health, roster, counters,
// Prometheus metrics, the session journal, and a WebSocket ingress for
// terminals.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ZentaChain/lcdrelay/pkg/network"
	"github.com/ZentaChain/lcdrelay/pkg/storage"
)

// EventSource reads journaled session events
type EventSource interface {
	Recent(ctx context.Context, limit int) ([]storage.Event, error)
}

// Server is the relay HTTP API
type Server struct {
	registry   *network.Registry
	events     EventSource
	router     *gin.Engine
	addr       string
	httpServer *http.Server
	log        zerolog.Logger
	startTime  time.Time

	metrics  *prometheus.Registry
	requests *prometheus.CounterVec

	shutdownTimeout time.Duration
}

// Config holds server configuration
type Config struct {
	Addr              string
	EnableCORS        bool
	EnableMetrics     bool
	RateLimit         int // requests per minute per client IP, 0 disables
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:              ":8080",
		EnableCORS:        true,
		EnableMetrics:     true,
		RateLimit:         600,
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,
	}
}

// NewServer creates the API server. events may be nil when the journal is
// disabled.
func NewServer(registry *network.Registry, events EventSource, config *Config, log zerolog.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	server := &Server{
		registry:  registry,
		events:    events,
		router:    router,
		addr:      config.Addr,
		log:       log,
		startTime: time.Now(),

		shutdownTimeout: config.ShutdownTimeout,
	}

	// Long-lived WebSocket sessions are hijacked from the http.Server, so
	// only the header read is bounded.
	server.httpServer = &http.Server{
		Addr:              config.Addr,
		Handler:           router,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	if config.EnableMetrics {
		server.metrics, server.requests = newMetrics(registry)
	}

	server.setupMiddleware(config)
	server.setupRoutes()

	return server
}

func (s *Server) setupMiddleware(config *Config) {
	s.router.Use(RecoveryMiddleware(s.log))

	if config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}

	if config.RateLimit > 0 {
		s.router.Use(RateLimitMiddleware(NewRateLimiter(config.RateLimit)))
	}

	if s.requests != nil {
		s.router.Use(MetricsMiddleware(s.requests))
	}

	s.router.Use(LoggingMiddleware(s.log))
}

func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/roster", s.handleRoster)
		v1.GET("/sessions", s.handleSessions)
		v1.GET("/stats", s.handleStats)
		v1.GET("/events", s.handleEvents)
	}

	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", metricsHandler(s.metrics))
	}
	s.router.GET(network.WebSocketPath, s.handleWebSocket)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts HTTP connections on l until Shutdown
func (s *Server) Serve(l net.Listener) error {
	s.log.Info().Str("addr", l.Addr().String()).Msg("http api listening")
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(l)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down http api")
	return s.Stop()
}

// Stop gracefully shuts down the HTTP server. Hijacked WebSocket
// connections are not tracked here; they end with the registry.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
