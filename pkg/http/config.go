package http

import "time"

// Config holds the HTTP server configuration
type Config struct {
	// Port is the HTTP server port
	Port int `json:"port"`

	// EnableMetrics exposes the Prometheus registry at /metrics
	EnableMetrics bool `json:"enable_metrics"`

	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`

	// MaxBodyBytes limits the size of analysis request bodies
	MaxBodyBytes int64 `json:"max_body_bytes"`
}

// NewDefaultConfig returns a new default configuration
func NewDefaultConfig() *Config {
	return &Config{
		Port:          8080,
		EnableMetrics: true,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  60 * time.Second,
		IdleTimeout:   60 * time.Second,
		MaxBodyBytes:  5 << 20,
	}
}
