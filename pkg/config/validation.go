package config

import (
	"fmt"
	"net/url"

	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/llm"
)

// ConfigValidator handles configuration validation
type ConfigValidator struct {
	logger   *logrus.Logger
	errors   []ValidationError
	warnings []ValidationWarning
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value"`
	Rule    string      `json:"rule"`
	Message string      `json:"message"`
}

// ValidationWarning represents a configuration validation warning
type ValidationWarning struct {
	Field      string      `json:"field"`
	Value      interface{} `json:"value"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
}

// ValidationResult represents the result of configuration validation
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationError   `json:"errors,omitempty"`
	Warnings []ValidationWarning `json:"warnings,omitempty"`
	Summary  string              `json:"summary"`
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator(logger *logrus.Logger) *ConfigValidator {
	return &ConfigValidator{
		logger:   logger,
		errors:   make([]ValidationError, 0),
		warnings: make([]ValidationWarning, 0),
	}
}

// ValidateConfig validates the entire configuration
func (v *ConfigValidator) ValidateConfig(config *Config) *ValidationResult {
	v.errors = make([]ValidationError, 0)
	v.warnings = make([]ValidationWarning, 0)

	v.validateHTTPConfig(config)
	v.validateLLMConfig(config)
	v.validateMessagingConfig(config)
	v.validateAnalysisConfig(config)
	v.validateTracingConfig(config)
	v.validateRateLimitConfig(config)

	result := &ValidationResult{
		Valid:    len(v.errors) == 0,
		Errors:   v.errors,
		Warnings: v.warnings,
	}
	result.Summary = v.generateSummary()

	if len(v.errors) > 0 {
		v.logger.WithField("error_count", len(v.errors)).Error("Configuration validation failed")
		for _, err := range v.errors {
			v.logger.WithFields(logrus.Fields{
				"field": err.Field,
				"value": err.Value,
				"rule":  err.Rule,
			}).Error(err.Message)
		}
	}

	if len(v.warnings) > 0 {
		for _, warning := range v.warnings {
			v.logger.WithFields(logrus.Fields{
				"field": warning.Field,
				"value": warning.Value,
			}).Warning(warning.Message)
		}
	}

	return result
}

// validateHTTPConfig validates HTTP server configuration
func (v *ConfigValidator) validateHTTPConfig(config *Config) {
	if config.HTTP.Enabled {
		if !v.isValidPort(config.HTTP.Port) {
			v.addError("http_port", config.HTTP.Port, "range", fmt.Sprintf("Invalid HTTP port %d (must be 1-65535)", config.HTTP.Port))
		}
	}

	if config.HTTP.ReadTimeout <= 0 {
		v.addError("http_read_timeout", config.HTTP.ReadTimeout, "positive", "HTTP read timeout must be positive")
	}
	if config.HTTP.WriteTimeout <= 0 {
		v.addError("http_write_timeout", config.HTTP.WriteTimeout, "positive", "HTTP write timeout must be positive")
	}
	if config.HTTP.MaxBodyBytes <= 0 {
		v.addError("http_max_body_bytes", config.HTTP.MaxBodyBytes, "positive", "HTTP body limit must be positive")
	}
}

// validateLLMConfig validates the model detector configuration. A missing
// API key is allowed.
func (v *ConfigValidator) validateLLMConfig(config *Config) {
	if !config.LLM.Enabled {
		return
	}

	if config.LLM.Timeout <= 0 {
		v.addError("llm_timeout", config.LLM.Timeout, "positive", "LLM timeout must be positive")
	}
	if config.LLM.Temperature < 0 || config.LLM.Temperature > 2 {
		v.addError("llm_temperature", config.LLM.Temperature, "range", "LLM temperature must be between 0 and 2")
	}
	if _, err := url.ParseRequestURI(config.LLM.BaseURL); err != nil {
		v.addError("llm_base_url", config.LLM.BaseURL, "format", "LLM base URL must be an absolute URL")
	}
	if config.LLM.Model == "" {
		v.addError("llm_model", config.LLM.Model, "required", "LLM model must be set")
	}
}

// validateMessagingConfig validates AMQP publishing configuration
func (v *ConfigValidator) validateMessagingConfig(config *Config) {
	if !config.Messaging.Enabled {
		return
	}

	if config.Messaging.AMQPURL == "" {
		v.addError("amqp_url", "", "required", "AMQP_URL is required when AMQP_ENABLED is true")
	}
	if config.Messaging.QueueName == "" {
		v.addError("amqp_queue_name", "", "required", "AMQP queue name must be set")
	}
}

// validateAnalysisConfig warns about a default entity the model detector
// would reject
func (v *ConfigValidator) validateAnalysisConfig(config *Config) {
	if _, err := llm.ParseEntity(config.Analysis.DefaultEntity); err != nil {
		v.addWarning("analysis_default_entity", config.Analysis.DefaultEntity,
			"Default entity is not supported by the model detector",
			fmt.Sprintf("Use %q or %q", llm.EntityProfanity, llm.EntityCompliance))
	}
}

// validateTracingConfig validates OpenTelemetry export settings
func (v *ConfigValidator) validateTracingConfig(config *Config) {
	if !config.Tracing.Enabled {
		return
	}

	if config.Tracing.SampleRatio < 0 || config.Tracing.SampleRatio > 1 {
		v.addError("tracing_sample_ratio", config.Tracing.SampleRatio, "range", "Tracing sample ratio must be between 0 and 1")
	}
	if config.Tracing.Endpoint == "" {
		v.addWarning("otel_exporter_otlp_endpoint", "",
			"Tracing is enabled without an OTLP endpoint, spans will not be exported",
			"Set OTEL_EXPORTER_OTLP_ENDPOINT, e.g. localhost:4317")
	}
}

func (v *ConfigValidator) validateRateLimitConfig(config *Config) {
	if !config.RateLimit.Enabled {
		return
	}
	if config.RateLimit.RequestsPerSecond <= 0 {
		v.addError("rate_limit_rps", config.RateLimit.RequestsPerSecond, "positive", "Rate limit must allow at least some requests per second")
	}
	if config.RateLimit.BurstSize < 1 {
		v.addError("rate_limit_burst", config.RateLimit.BurstSize, "positive", "Rate limit burst must be at least 1")
	}
}

func (v *ConfigValidator) isValidPort(port int) bool {
	return port > 0 && port <= 65535
}

func (v *ConfigValidator) addError(field string, value interface{}, rule, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	})
}

func (v *ConfigValidator) addWarning(field string, value interface{}, message, suggestion string) {
	v.warnings = append(v.warnings, ValidationWarning{
		Field:      field,
		Value:      value,
		Message:    message,
		Suggestion: suggestion,
	})
}

func (v *ConfigValidator) generateSummary() string {
	if len(v.errors) == 0 && len(v.warnings) == 0 {
		return "Configuration validation passed successfully"
	}

	summary := ""
	if len(v.errors) > 0 {
		summary += fmt.Sprintf("%d validation error(s)", len(v.errors))
	}

	if len(v.warnings) > 0 {
		if summary != "" {
			summary += " and "
		}
		summary += fmt.Sprintf("%d warning(s)", len(v.warnings))
	}

	return summary + " found"
}
