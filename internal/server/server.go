// Package server provides the HTTP REST API for the portfolio backend.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonathan/portfolio-backend/internal/assistant"
	"github.com/jonathan/portfolio-backend/internal/config"
	"github.com/jonathan/portfolio-backend/internal/datastore"
	"github.com/jonathan/portfolio-backend/internal/db"
	"github.com/jonathan/portfolio-backend/internal/health"
	"github.com/jonathan/portfolio-backend/internal/portfolio"
	"github.com/jonathan/portfolio-backend/internal/server/middleware"
	"github.com/jonathan/portfolio-backend/internal/server/ratelimit"
	"go.uber.org/zap"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	settings    *config.Settings
	portfolio   *portfolio.Service
	assistant   *assistant.Service
	health      *health.Service
	db          *db.DB
	watcher     *datastore.Watcher
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	logger      *zap.Logger
	origins     map[string]bool
	anyOrigin   bool
}

// Config holds server dependencies. DB and Watcher are optional.
type Config struct {
	Settings  *config.Settings
	Portfolio *portfolio.Service
	Assistant *assistant.Service
	Health    *health.Service
	DB        *db.DB
	Watcher   *datastore.Watcher
	// RateLimit defaults to ratelimit.LoadConfig() when nil.
	RateLimit *ratelimit.Config
	Logger    *zap.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	switch {
	case cfg.Settings == nil:
		return nil, fmt.Errorf("server settings are required")
	case cfg.Portfolio == nil:
		return nil, fmt.Errorf("portfolio service is required")
	case cfg.Assistant == nil:
		return nil, fmt.Errorf("assistant service is required")
	case cfg.Health == nil:
		return nil, fmt.Errorf("health service is required")
	}

	jwtConfig, err := cfg.Settings.JWT()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rlConfig := cfg.RateLimit
	if rlConfig == nil {
		rlConfig = ratelimit.LoadConfig()
	}

	s := &Server{
		settings:    cfg.Settings,
		portfolio:   cfg.Portfolio,
		assistant:   cfg.Assistant,
		health:      cfg.Health,
		db:          cfg.DB,
		watcher:     cfg.Watcher,
		rateLimiter: ratelimit.NewLimiter(rlConfig),
		jwtService:  NewJWTService(jwtConfig),
		logger:      logger,
		origins:     make(map[string]bool),
	}
	for _, origin := range cfg.Settings.CORSOrigins {
		if origin == "*" {
			s.anyOrigin = true
		}
		s.origins[origin] = true
	}

	mux := http.NewServeMux()
	s.registerMainRoutes(mux)
	s.registerDataRoutes(mux)
	s.registerAIRoutes(mux)
	mux.HandleFunc("/", s.handleNotFound)

	s.httpServer = &http.Server{
		Addr:         cfg.Settings.Addr(),
		Handler:      middleware.RequestID(s.withLogging(s.withCORS(s.withRateLimit(mux)))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Health returns the health service backing the health endpoints.
func (s *Server) Health() *health.Service {
	return s.health
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.release()

	if s.watcher != nil {
		if err := s.watcher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start data watcher: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("Server stopped")
	return nil
}

// release stops background work owned by the server.
func (s *Server) release() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.rateLimiter.Stop()
	s.db.Close()
}

// Close releases resources without serving. Used by tests and failed startups.
func (s *Server) Close() {
	s.release()
}

// withCORS adds CORS headers for the configured origins and answers preflight requests.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case s.anyOrigin:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && s.origins[origin]:
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, clientID, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := middleware.GetRequestID(r.Context())

		s.logger.Info("Request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.String("request_id", requestID))

		next.ServeHTTP(rec, r)

		s.logger.Info("Response",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID))
	})
}

// Envelope is the success response body.
type Envelope struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	Meta      any       `json:"meta,omitempty"`
}

// ErrorEnvelope is the error response body.
type ErrorEnvelope struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorCode string    `json:"error_code"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Error encoding JSON response", zap.Error(err))
	}
}

// successResponse writes a 200 envelope.
func (s *Server) successResponse(w http.ResponseWriter, message string, data, meta any) {
	s.jsonResponse(w, http.StatusOK, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
		Meta:      meta,
	})
}

// errorResponse writes an error envelope with the status and code derived from err.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	requestID := middleware.GetRequestID(r.Context())

	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Error(err))
	}

	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "Internal server error"
	}

	s.jsonResponse(w, status, ErrorEnvelope{
		Success:   false,
		Error:     message,
		ErrorCode: ErrorCode(err),
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	})
}

// handleNotFound answers unregistered paths.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.errorResponse(w, r, &ErrRouteNotFound{Path: r.URL.Path})
}

// extractClientID extracts the client identifier from the request.
// It uses the IP address from RemoteAddr; forwarding headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, clientID string, info ratelimit.Info) {
	if info.RetryAfter > 0 {
		secs := int(info.RetryAfter.Seconds())
		if info.RetryAfter%time.Second != 0 {
			secs++
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn("Rate limit exceeded",
		zap.String("client", clientID),
		zap.String("tier", info.Tier),
		zap.Int("limit", info.Limit),
		zap.Time("reset", info.ResetTime))

	s.errorResponse(w, r, &ErrRateLimited{})
}

// parseQueryInt reads a non-negative integer query parameter, clamped to maxValue when maxValue > 0.
func parseQueryInt(r *http.Request, key string, defaultValue, maxValue int) (int, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, &ErrValidation{Field: key, Message: "must be an integer"}
	}
	if val < 0 {
		return 0, &ErrValidation{Field: key, Message: "must not be negative"}
	}
	if maxValue > 0 && val > maxValue {
		return maxValue, nil
	}
	return val, nil
}

// parseQueryBool reads an optional boolean query parameter.
func parseQueryBool(r *http.Request, key string) (*bool, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return nil, nil
	}
	var val bool
	switch strings.ToLower(valStr) {
	case "1", "true", "t", "yes", "y", "on":
		val = true
	case "0", "false", "f", "no", "n", "off":
		val = false
	default:
		return nil, &ErrValidation{Field: key, Message: "must be a boolean"}
	}
	return &val, nil
}
