package http

import (
	"net/http"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/version"
)

// Health states
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckResult `json:"checks"`
	System    SystemInfo             `json:"system"`
}

// CheckResult represents an individual health check result
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SystemInfo contains system resource information
type SystemInfo struct {
	GoRoutines int    `json:"goroutines"`
	MemoryMB   uint64 `json:"memory_mb"`
	CPUCount   int    `json:"cpu_count"`
}

func (s *Server) checkHealth() HealthStatus {
	health := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Version:   version.Version,
		Checks:    make(map[string]CheckResult),
	}

	if s.analysisHandler != nil {
		health.Checks["analysis"] = CheckResult{Status: StatusHealthy, Message: "Analysis engine ready"}

		// The pattern detectors keep working without the model
		if s.analysisHandler.analyzer.ModelEnabled() {
			health.Checks["model"] = CheckResult{Status: StatusHealthy, Message: "Model detector configured"}
		} else {
			health.Checks["model"] = CheckResult{Status: StatusDegraded, Message: "Model detector disabled"}
		}
	} else {
		health.Checks["analysis"] = CheckResult{Status: StatusUnhealthy, Message: "Analysis engine not initialized"}
		health.Status = StatusUnhealthy
	}

	if s.reportHub != nil {
		if s.reportHub.IsRunning() {
			health.Checks["websocket"] = CheckResult{Status: StatusHealthy, Message: "Report hub is running"}
		} else {
			health.Checks["websocket"] = CheckResult{Status: StatusDegraded, Message: "Report hub not running"}
		}
	}

	if s.amqpClient != nil {
		if s.amqpClient.IsConnected() {
			health.Checks["amqp"] = CheckResult{Status: StatusHealthy, Message: "AMQP connected"}
		} else {
			health.Checks["amqp"] = CheckResult{Status: StatusDegraded, Message: "AMQP disconnected"}
		}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	health.System.GoRoutines = runtime.NumGoroutine()
	health.System.MemoryMB = m.Alloc / 1024 / 1024
	health.System.CPUCount = runtime.NumCPU()

	return health
}

// HealthHandler handles health check requests
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	health := s.checkHealth()

	if r.URL.Query().Get("detailed") == "true" {
		s.logger.WithFields(logrus.Fields{
			"status":   health.Status,
			"checks":   health.Checks,
			"duration": time.Since(startTime),
		}).Debug("Health check performed")
	}

	statusCode := http.StatusOK
	if health.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, s.logger, statusCode, health)
}

// LivenessHandler handles kubernetes liveness probe
func (s *Server) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ReadinessHandler handles kubernetes readiness probe
func (s *Server) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.analysisHandler == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
