package correlation

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPMiddleware adds correlation ID tracking to HTTP requests
type HTTPMiddleware struct {
	logger      *logrus.Logger
	logRequests bool
}

// NewHTTPMiddleware creates a new HTTP correlation middleware
func NewHTTPMiddleware(logger *logrus.Logger, logRequests bool) *HTTPMiddleware {
	return &HTTPMiddleware{
		logger:      logger,
		logRequests: logRequests,
	}
}

// Middleware reuses an incoming X-Correlation-ID or X-Request-ID, or
// generates one, and echoes it in the response headers
func (m *HTTPMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &RequestInfo{
			CorrelationID: extractCorrelationID(r),
			StartTime:     time.Now(),
			ClientIP:      clientIP(r),
			Method:        r.Method,
			Path:          r.URL.Path,
		}
		if info.CorrelationID.IsEmpty() {
			info.CorrelationID = New()
		}

		r = r.WithContext(info.ToContext(r.Context()))
		w.Header().Set(HTTPHeader, info.CorrelationID.String())

		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		if !m.logRequests || m.logger == nil {
			return
		}

		fields := logrus.Fields{
			"correlation_id": info.CorrelationID.String(),
			"method":         r.Method,
			"path":           r.URL.Path,
			"status":         wrapper.statusCode,
			"duration_ms":    info.Duration().Milliseconds(),
			"client_ip":      info.ClientIP,
		}

		switch {
		case wrapper.statusCode >= 500:
			m.logger.WithFields(fields).Error("HTTP request completed with server error")
		case wrapper.statusCode >= 400:
			m.logger.WithFields(fields).Warn("HTTP request completed with client error")
		default:
			m.logger.WithFields(fields).Debug("HTTP request completed")
		}
	})
}

func extractCorrelationID(r *http.Request) ID {
	if id := r.Header.Get(HTTPHeader); id != "" {
		return ID(id)
	}
	if id := r.Header.Get(HTTPRequestIDHeader); id != "" {
		return ID(id)
	}
	return ""
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// responseWrapper captures the status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (w *responseWrapper) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWrapper) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades pass through the middleware
func (w *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	w.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Unwrap returns the underlying ResponseWriter
func (w *responseWrapper) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
