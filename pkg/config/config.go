package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/errors"
)

// Config holds the complete analyzer configuration
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Logging   LoggingConfig   `json:"logging"`
	LLM       LLMConfig       `json:"llm"`
	Messaging MessagingConfig `json:"messaging"`
	Analysis  AnalysisConfig  `json:"analysis"`
	Tracing   TracingConfig   `json:"tracing"`
	RateLimit RateLimitConfig `json:"rate_limit"`

	// EnvFile is the .env file the configuration was loaded from, if any
	EnvFile string `json:"env_file,omitempty"`
	// HotReload watches EnvFile and applies logging changes at runtime
	HotReload bool `json:"hot_reload" env:"CONFIG_HOT_RELOAD" default:"false"`
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port          int           `json:"port" env:"HTTP_PORT" default:"8080"`
	Enabled       bool          `json:"enabled" env:"HTTP_ENABLED" default:"true"`
	EnableMetrics bool          `json:"enable_metrics" env:"HTTP_ENABLE_METRICS" default:"true"`
	ReadTimeout   time.Duration `json:"read_timeout" env:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout  time.Duration `json:"write_timeout" env:"HTTP_WRITE_TIMEOUT" default:"60s"`
	MaxBodyBytes  int64         `json:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" default:"5242880"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" default:"info"`
	Format string `json:"format" env:"LOG_FORMAT" default:"json"`
}

// LLMConfig holds the model-based detector configuration
type LLMConfig struct {
	Enabled     bool          `json:"enabled" env:"LLM_ENABLED" default:"true"`
	APIKey      string        `json:"-" env:"GEMINI_API_KEY"`
	Model       string        `json:"model" env:"LLM_MODEL" default:"gemini-2.0-flash"`
	BaseURL     string        `json:"base_url" env:"LLM_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	Temperature float64       `json:"temperature" env:"LLM_TEMPERATURE" default:"0.1"`
	Timeout     time.Duration `json:"timeout" env:"LLM_TIMEOUT" default:"60s"`
}

// MessagingConfig holds AMQP report publishing configuration
type MessagingConfig struct {
	Enabled   bool   `json:"enabled" env:"AMQP_ENABLED" default:"false"`
	AMQPURL   string `json:"-" env:"AMQP_URL"`
	QueueName string `json:"queue_name" env:"AMQP_QUEUE_NAME" default:"call_analysis_reports"`
}

// AnalysisConfig holds analysis defaults
type AnalysisConfig struct {
	DefaultEntity string `json:"default_entity" env:"ANALYSIS_DEFAULT_ENTITY" default:"Profanity Detection"`
}

// TracingConfig holds OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled     bool    `json:"enabled" env:"TRACING_ENABLED" default:"false"`
	Endpoint    string  `json:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure    bool    `json:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	ServiceName string  `json:"service_name" env:"OTEL_SERVICE_NAME" default:"call-analyzer"`
	SampleRatio float64 `json:"sample_ratio" env:"TRACING_SAMPLE_RATIO" default:"1.0"`
}

// RateLimitConfig holds per-client HTTP rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool          `json:"enabled" env:"RATE_LIMIT_ENABLED" default:"false"`
	RequestsPerSecond float64       `json:"requests_per_second" env:"RATE_LIMIT_RPS" default:"5"`
	BurstSize         int           `json:"burst_size" env:"RATE_LIMIT_BURST" default:"10"`
	IdleTTL           time.Duration `json:"idle_ttl" env:"RATE_LIMIT_IDLE_TTL" default:"10m"`
	WhitelistedIPs    []string      `json:"whitelisted_ips" env:"RATE_LIMIT_WHITELIST_IPS"`
}

// Load loads the configuration from .env files and environment variables
func Load(logger *logrus.Logger) (*Config, error) {
	config := &Config{}
	config.EnvFile = loadEnvFile(logger)
	config.HotReload = getEnvBool("CONFIG_HOT_RELOAD", false)

	if err := loadHTTPConfig(logger, &config.HTTP); err != nil {
		return nil, errors.Wrap(err, "failed to load HTTP configuration")
	}

	if err := loadLoggingConfig(logger, &config.Logging); err != nil {
		return nil, errors.Wrap(err, "failed to load logging configuration")
	}

	if err := loadLLMConfig(logger, &config.LLM); err != nil {
		return nil, errors.Wrap(err, "failed to load LLM configuration")
	}

	if err := loadMessagingConfig(logger, &config.Messaging); err != nil {
		return nil, errors.Wrap(err, "failed to load messaging configuration")
	}

	loadAnalysisConfig(&config.Analysis)
	loadTracingConfig(&config.Tracing)
	loadRateLimitConfig(&config.RateLimit)

	result := NewConfigValidator(logger).ValidateConfig(config)
	if !result.Valid {
		return nil, errors.NewInvalidInput(result.Summary, map[string]interface{}{
			"errors": result.Errors,
		})
	}

	return config, nil
}

// loadEnvFile loads the first .env file found and returns its absolute path
func loadEnvFile(logger *logrus.Logger) string {
	wd, err := os.Getwd()
	if err != nil {
		logger.WithError(err).Warn("Failed to get current working directory")
		wd = "unknown"
	}

	possibleEnvFiles := []string{
		".env",                    // Current directory
		"../.env",                 // Parent directory
		filepath.Join(wd, ".env"), // Absolute path
	}

	var loadedFrom string
	for _, envFile := range possibleEnvFiles {
		if _, statErr := os.Stat(envFile); statErr != nil {
			continue
		}
		absPath, _ := filepath.Abs(envFile)
		logger.WithField("path", absPath).Debug("Attempting to load .env file")

		if loadErr := godotenv.Load(envFile); loadErr == nil {
			loadedFrom = absPath
			break
		}
	}

	if loadedFrom != "" {
		logger.WithFields(logrus.Fields{
			"working_dir": wd,
			"path":        loadedFrom,
		}).Info("Successfully loaded .env file")
	} else {
		logger.WithField("working_dir", wd).Debug("No .env file found, using environment variables only")
	}
	return loadedFrom
}

// loadHTTPConfig loads the HTTP configuration section
func loadHTTPConfig(logger *logrus.Logger, config *HTTPConfig) error {
	portStr := getEnv("HTTP_PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		logger.Warn("Invalid HTTP_PORT value, using default: 8080")
		port = 8080
	}
	config.Port = port

	config.Enabled = getEnvBool("HTTP_ENABLED", true)
	config.EnableMetrics = getEnvBool("HTTP_ENABLE_METRICS", true)

	config.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	config.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", 60*time.Second)
	config.MaxBodyBytes = int64(getEnvInt("HTTP_MAX_BODY_BYTES", 5<<20))

	return nil
}

// loadLoggingConfig loads the logging configuration section
func loadLoggingConfig(logger *logrus.Logger, config *LoggingConfig) error {
	config.Level = getEnv("LOG_LEVEL", "info")

	if _, err := logrus.ParseLevel(config.Level); err != nil {
		logger.Warnf("Invalid LOG_LEVEL '%s', defaulting to 'info'", config.Level)
		config.Level = "info"
	}

	config.Format = strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if config.Format != "json" && config.Format != "text" {
		logger.Warn("Invalid LOG_FORMAT, must be 'json' or 'text', defaulting to 'json'")
		config.Format = "json"
	}

	return nil
}

// loadLLMConfig loads the model detector configuration section
func loadLLMConfig(logger *logrus.Logger, config *LLMConfig) error {
	config.Enabled = getEnvBool("LLM_ENABLED", true)
	config.APIKey = getEnv("GEMINI_API_KEY", "")
	config.Model = getEnv("LLM_MODEL", "gemini-2.0-flash")
	config.BaseURL = getEnv("LLM_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	config.Temperature = getEnvFloat("LLM_TEMPERATURE", 0.1)
	config.Timeout = getEnvDuration("LLM_TIMEOUT", 60*time.Second)

	if config.Enabled && config.APIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; model analysis will report a configuration error")
	}

	return nil
}

// loadMessagingConfig loads the messaging configuration section
func loadMessagingConfig(logger *logrus.Logger, config *MessagingConfig) error {
	config.Enabled = getEnvBool("AMQP_ENABLED", false)
	config.AMQPURL = getEnv("AMQP_URL", "")
	config.QueueName = getEnv("AMQP_QUEUE_NAME", "call_analysis_reports")

	if !config.Enabled && config.AMQPURL != "" {
		logger.Debug("AMQP_URL is set but AMQP_ENABLED is false; reports will not be published")
	}

	return nil
}

func loadAnalysisConfig(config *AnalysisConfig) {
	config.DefaultEntity = getEnv("ANALYSIS_DEFAULT_ENTITY", "Profanity Detection")
}

func loadTracingConfig(config *TracingConfig) {
	config.Enabled = getEnvBool("TRACING_ENABLED", false)
	config.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	config.Insecure = getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true)
	config.ServiceName = getEnv("OTEL_SERVICE_NAME", "call-analyzer")
	config.SampleRatio = getEnvFloat("TRACING_SAMPLE_RATIO", 1.0)
}

func loadRateLimitConfig(config *RateLimitConfig) {
	config.Enabled = getEnvBool("RATE_LIMIT_ENABLED", false)
	config.RequestsPerSecond = getEnvFloat("RATE_LIMIT_RPS", 5)
	config.BurstSize = getEnvInt("RATE_LIMIT_BURST", 10)
	config.IdleTTL = getEnvDuration("RATE_LIMIT_IDLE_TTL", 10*time.Minute)

	config.WhitelistedIPs = nil
	for _, ip := range strings.Split(getEnv("RATE_LIMIT_WHITELIST_IPS", ""), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			config.WhitelistedIPs = append(config.WhitelistedIPs, ip)
		}
	}
}

// ParseLevel returns the configured logrus level, or info when invalid
func (c LoggingConfig) ParseLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Helper function to get an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// Helper function to get a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true
	case "false", "no", "0", "off":
		return false
	default:
		return defaultValue
	}
}

// Helper function to get an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// Helper function to get a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getEnvFloat retrieves an environment variable and converts it to float64
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatValue
}
