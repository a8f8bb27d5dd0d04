// Package http serves the heliobio REST API, Prometheus metrics and the
// websocket stream.
package http

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/heliobio/internal/interfaces/http/handlers"
)

// Server represents the API server
type Server struct {
	router   *mux.Router
	server   *http.Server
	handlers *handlers.Handlers
	metrics  *MetricsRegistry
	stream   http.Handler
	config   ServerConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AdminKeys      []string      `yaml:"admin_keys"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:           "127.0.0.1", // Local-only by default
		Port:           8080,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

// Validate checks the listen address and timeouts
func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("read_timeout, write_timeout and request_timeout must be positive")
	}
	for i, k := range c.AdminKeys {
		if strings.TrimSpace(k) == "" {
			return fmt.Errorf("admin_keys[%d] is empty", i)
		}
	}
	return nil
}

// Deps are the components served by the API
type Deps struct {
	handlers.Deps
	Metrics *MetricsRegistry
	Stream  http.Handler // websocket endpoint, optional
}

// NewServer creates a new HTTP server instance
func NewServer(config ServerConfig, deps Deps) (*Server, error) {
	if deps.Poller == nil {
		return nil, errors.New("http server requires a poller")
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetricsRegistry()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultServerConfig().RequestTimeout
	}

	server := &Server{
		router:   mux.NewRouter(),
		handlers: handlers.NewHandlers(deps.Deps),
		metrics:  deps.Metrics,
		stream:   deps.Stream,
		config:   config,
	}

	server.setupRoutes()

	server.server = &http.Server{
		Addr:         server.GetAddress(),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Middleware for all routes
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.corsMiddleware)

	// API routes (JSON only)
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.timeoutMiddleware)
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/solar/current", s.handlers.SolarCurrent).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/social/analysis", s.handlers.SocialAnalysis).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/social/trending", s.handlers.SocialTrending).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/correlation/realtime", s.handlers.CorrelationRealtime).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/alerts/active", s.handlers.ActiveAlerts).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/alerts/stats", s.handlers.AlertStats).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/alerts/history", s.handlers.AlertHistory).Methods(http.MethodGet, http.MethodOptions)
	api.Handle("/alerts/{id}/acknowledge", s.adminKeyMiddleware(http.HandlerFunc(s.handlers.AcknowledgeAlert))).
		Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/historical/data", s.handlers.HistoricalData).Methods(http.MethodGet, http.MethodOptions)

	s.router.Handle("/metrics", s.metrics.MetricsHandler()).Methods(http.MethodGet)
	if s.stream != nil {
		s.router.Handle("/ws", s.stream).Methods(http.MethodGet)
	}

	// 404 handler
	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
}

// requestIDMiddleware adds unique request ID to each request
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(handlers.WithRequestID(r.Context(), requestID)))
	})
}

// requestLoggingMiddleware logs all requests with structured format and
// records request metrics
func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Capture response status
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		s.metrics.RecordRequest(r.Method, route, wrapper.statusCode, duration)

		log.Debug().
			Str("component", "http").
			Str("request_id", w.Header().Get("X-Request-ID")).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Str("remote", r.RemoteAddr).
			Msg("Request served")
	})
}

// timeoutMiddleware enforces request timeouts
func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware adds CORS headers for local development
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only allow localhost origins
		origin := r.Header.Get("Origin")
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// jsonContentTypeMiddleware sets JSON content type for API responses
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// adminKeyMiddleware requires a matching X-API-Key when admin keys are configured
func (s *Server) adminKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.config.AdminKeys) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		presented := []byte(r.Header.Get("X-API-Key"))
		for _, key := range s.config.AdminKeys {
			if subtle.ConstantTimeCompare(presented, []byte(key)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
		}
		log.Warn().
			Str("component", "http").
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Msg("Rejected admin request")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprintf(w, `{"error":%q,"code":"invalid_api_key","request_id":%q}`+"\n",
			http.StatusText(http.StatusUnauthorized), handlers.RequestID(r.Context()))
	})
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's metrics registry
func (s *Server) Metrics() *MetricsRegistry {
	return s.metrics
}

// Start listens on the configured address and serves until Shutdown
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.GetAddress())
	if err != nil {
		return fmt.Errorf("port %d is busy or unavailable: %w", s.config.Port, err)
	}

	log.Info().
		Str("component", "http").
		Str("addr", s.GetAddress()).
		Bool("admin_keys", len(s.config.AdminKeys) > 0).
		Msg("Starting HTTP server")

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Str("component", "http").Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// GetAddress returns the server address
func (s *Server) GetAddress() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
}

// responseWrapper captures HTTP status codes for logging
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}
