package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/metrics"
	"call-analyzer/pkg/version"
)

// CorrelationMiddleware interface for request correlation
type CorrelationMiddleware interface {
	Middleware(next http.Handler) http.Handler
}

// TracingMiddleware interface for request tracing
type TracingMiddleware interface {
	Middleware(next http.Handler) http.Handler
}

// RateLimitMiddleware interface for per-client request limiting
type RateLimitMiddleware interface {
	Middleware(next http.Handler) http.Handler
}

// ConnectionChecker reports broker connectivity for health checks
type ConnectionChecker interface {
	IsConnected() bool
}

// Server represents the HTTP server for the analysis API, health checks and metrics
type Server struct {
	config                *Config
	logger                *logrus.Logger
	httpServer            *http.Server
	mux                   *http.ServeMux
	handler               http.Handler
	startTime             time.Time
	analysisHandler       *AnalysisHandler
	reportHub             *ReportHub
	amqpClient            ConnectionChecker
	correlationMiddleware CorrelationMiddleware
	tracingMiddleware     TracingMiddleware
	rateLimitMiddleware   RateLimitMiddleware
}

// NewServer creates a new HTTP server instance
func NewServer(logger *logrus.Logger, config *Config) *Server {
	if config == nil {
		config = NewDefaultConfig()
	}

	server := &Server{
		config:    config,
		logger:    logger,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	server.mux = mux
	server.handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler := http.Handler(mux)
		if server.rateLimitMiddleware != nil {
			handler = server.rateLimitMiddleware.Middleware(handler)
		}
		if server.tracingMiddleware != nil {
			handler = server.tracingMiddleware.Middleware(handler)
		}
		// Correlation is outermost so every log line carries the ID
		if server.correlationMiddleware != nil {
			handler = server.correlationMiddleware.Middleware(handler)
		}
		handler.ServeHTTP(w, r)
	})

	mux.HandleFunc("/health", addServerHeader(server.HealthHandler))
	mux.HandleFunc("/health/live", addServerHeader(server.LivenessHandler))
	mux.HandleFunc("/health/ready", addServerHeader(server.ReadinessHandler))
	mux.HandleFunc("/status", addServerHeader(server.statusHandler))

	if config.EnableMetrics {
		if registry := metrics.GetRegistry(); registry != nil {
			promHandler := promhttp.HandlerFor(
				registry,
				promhttp.HandlerOpts{
					EnableOpenMetrics: true,
					Registry:          registry,
				},
			)
			mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Server", version.ServerHeader())
				promHandler.ServeHTTP(w, r)
			})
			logger.Info("Prometheus metrics endpoint enabled at /metrics")
		} else {
			logger.Warn("Metrics enabled but registry not initialized, /metrics not registered")
		}
	} else {
		logger.Info("Metrics endpoints disabled")
	}

	server.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", config.Port),
		Handler:      server.handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server
}

func addServerHeader(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", version.ServerHeader())
		next(w, r)
	}
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetCorrelationMiddleware sets the correlation ID middleware for request tracking.
func (s *Server) SetCorrelationMiddleware(middleware CorrelationMiddleware) {
	s.correlationMiddleware = middleware
	s.logger.Info("Correlation ID middleware configured")
}

// SetTracingMiddleware sets the tracing middleware. It runs inside the
// correlation middleware so spans carry the correlation ID.
func (s *Server) SetTracingMiddleware(middleware TracingMiddleware) {
	s.tracingMiddleware = middleware
	s.logger.Info("Tracing middleware configured")
}

// SetRateLimitMiddleware sets the per-client rate limiter applied before routing
func (s *Server) SetRateLimitMiddleware(middleware RateLimitMiddleware) {
	s.rateLimitMiddleware = middleware
	s.logger.Info("Rate limit middleware configured")
}

// RegisterHandler adds a custom handler to the server
func (s *Server) RegisterHandler(path string, handler http.HandlerFunc) {
	s.mux.HandleFunc(path, addServerHeader(handler))
	s.logger.WithField("path", path).Debug("Registered HTTP handler")
}

// SetAnalysisHandler registers the analysis API
func (s *Server) SetAnalysisHandler(handler *AnalysisHandler) {
	s.analysisHandler = handler
	handler.RegisterHandlers(s)
}

// SetReportHub registers the live report feed at /ws/reports
func (s *Server) SetReportHub(hub *ReportHub) {
	s.reportHub = hub
	s.mux.HandleFunc("/ws/reports", hub.ServeWs)
	s.logger.Info("Report WebSocket endpoint registered at /ws/reports")
}

// SetAMQPClient sets the AMQP client reference for health checks
func (s *Server) SetAMQPClient(client ConnectionChecker) {
	s.amqpClient = client
}

// Start starts the HTTP server in a goroutine
func (s *Server) Start() {
	s.logger.WithField("port", s.config.Port).Info("Starting HTTP server")

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server failed")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

// statusHandler handles the /status endpoint
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":     "ok",
		"service":    version.Name,
		"version":    version.Version,
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"started_at": s.startTime.Format(time.RFC3339),
	}

	if s.analysisHandler != nil {
		status["model_enabled"] = s.analysisHandler.analyzer.ModelEnabled()
	}
	if s.reportHub != nil {
		status["websocket_clients"] = s.reportHub.ClientCount()
	}
	if s.amqpClient != nil {
		status["amqp_connected"] = s.amqpClient.IsConnected()
	}

	writeJSON(w, s.logger, http.StatusOK, status)
}

// ErrorResponse sends a standardized error response
func (s *Server) ErrorResponse(w http.ResponseWriter, err error) {
	errors.WriteError(w, err)
	s.logger.WithError(err).Warn("HTTP error response sent")
}

// writeJSON encodes v before writing the header, so an unencodable value
// becomes a 500 instead of an empty 200
func writeJSON(w http.ResponseWriter, logger logrus.FieldLogger, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.WithError(err).Error("Failed to encode JSON response")
		errors.WriteError(w, errors.NewInternalError("failed to encode response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		logger.WithError(err).Debug("Failed to write JSON response")
	}
}
