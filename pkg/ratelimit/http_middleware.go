package ratelimit

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/correlation"
	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/metrics"
)

// HTTPMiddleware provides per-client rate limiting for HTTP requests
type HTTPMiddleware struct {
	limiter          *Limiter
	config           *Config
	logger           *logrus.Logger
	whitelistedIPs   map[string]bool
	whitelistedNets  []*net.IPNet
	whitelistedPaths map[string]bool
}

// NewHTTPMiddleware creates a new HTTP rate limiting middleware
func NewHTTPMiddleware(config *Config, logger *logrus.Logger) *HTTPMiddleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &HTTPMiddleware{
		limiter:          NewLimiter(config.RequestsPerSecond, config.BurstSize, config.IdleTTL, logger),
		config:           config,
		logger:           logger,
		whitelistedIPs:   make(map[string]bool),
		whitelistedPaths: make(map[string]bool),
	}

	for _, ip := range config.WhitelistedIPs {
		ip = strings.TrimSpace(ip)
		if ip == "" {
			continue
		}
		if strings.Contains(ip, "/") {
			_, ipNet, err := net.ParseCIDR(ip)
			if err == nil {
				m.whitelistedNets = append(m.whitelistedNets, ipNet)
			} else {
				logger.WithError(err).Warnf("Invalid CIDR in whitelist: %s", ip)
			}
		} else {
			m.whitelistedIPs[ip] = true
		}
	}

	for _, path := range config.WhitelistedPaths {
		path = strings.TrimSpace(path)
		if path != "" {
			m.whitelistedPaths[path] = true
		}
	}

	logger.WithFields(logrus.Fields{
		"enabled":           config.Enabled,
		"rps":               config.RequestsPerSecond,
		"burst":             config.BurstSize,
		"whitelisted_ips":   len(m.whitelistedIPs) + len(m.whitelistedNets),
		"whitelisted_paths": len(m.whitelistedPaths),
	}).Info("HTTP rate limiting middleware initialized")

	return m
}

// Middleware returns an HTTP middleware function that applies rate limiting
func (m *HTTPMiddleware) Middleware(next http.Handler) http.Handler {
	if !m.config.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if m.isPathWhitelisted(path) {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := m.getClientIP(r)
		if m.isIPWhitelisted(clientIP) {
			next.ServeHTTP(w, r)
			return
		}

		allowed, retryAfter := m.limiter.Check(clientIP)
		w.Header().Set("X-RateLimit-Limit", formatFloat(m.config.RequestsPerSecond))

		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}

			correlation.LoggerFromContext(r.Context(), m.logger).WithFields(logrus.Fields{
				"client_ip":   clientIP,
				"path":        path,
				"retry_after": retryAfter.String(),
			}).Warn("Rate limit exceeded")
			metrics.RecordRateLimited(path)

			w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
			w.Header().Set("X-RateLimit-Remaining", "0")
			errors.WriteError(w, errors.NewRateLimited("Rate limit exceeded. Please retry later.", map[string]interface{}{
				"retry_after_seconds": seconds,
			}))
			return
		}

		w.Header().Set("X-RateLimit-Remaining", formatFloat(math.Floor(m.limiter.Remaining(clientIP))))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Second).Unix()))
		next.ServeHTTP(w, r)
	})
}

// Limiter returns the underlying per-client limiter
func (m *HTTPMiddleware) Limiter() *Limiter {
	return m.limiter
}

// getClientIP prefers the address recorded by the correlation middleware
func (m *HTTPMiddleware) getClientIP(r *http.Request) string {
	if info, ok := correlation.RequestInfoFromContext(r.Context()); ok && info.ClientIP != "" {
		return info.ClientIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(ip) != nil {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *HTTPMiddleware) isIPWhitelisted(ip string) bool {
	if m.whitelistedIPs[ip] {
		return true
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, ipNet := range m.whitelistedNets {
		if ipNet.Contains(parsedIP) {
			return true
		}
	}
	return false
}

func (m *HTTPMiddleware) isPathWhitelisted(path string) bool {
	if m.whitelistedPaths[path] {
		return true
	}

	for p := range m.whitelistedPaths {
		if strings.HasSuffix(p, "*") && strings.HasPrefix(path, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%.0f", f)
}
