package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var (
	registry           *prometheus.Registry
	registryOnce       sync.Once
	defaultMetricsPath = "/metrics"
	metricsEnabled     = true

	// Analysis metrics
	AnalysisRequestsTotal *prometheus.CounterVec
	AnalysisDuration      *prometheus.HistogramVec
	UtterancesAnalyzed    prometheus.Counter
	FindingsTotal         *prometheus.CounterVec
	ViolationsTotal       *prometheus.CounterVec

	// Call quality metrics
	OvertalkPercentage prometheus.Histogram
	SilencePercentage  prometheus.Histogram

	// Model detector metrics
	ModelRequestsTotal *prometheus.CounterVec
	ModelLatency       *prometheus.HistogramVec
	ModelErrors        *prometheus.CounterVec

	// AMQP metrics
	AMQPPublishedMessages *prometheus.CounterVec
	AMQPConnectionStatus  prometheus.Gauge

	// Report feed metrics
	WebSocketClients prometheus.Gauge

	// HTTP metrics
	RateLimitedRequests *prometheus.CounterVec
)

var percentBuckets = []float64{0, 1, 2, 5, 10, 15, 20, 30, 50, 75, 100}

// Init initializes all metrics and registers them with Prometheus
func Init(logger *logrus.Logger) {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		AnalysisRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_analyzer_analysis_requests_total",
				Help: "Total number of transcript analyses",
			},
			[]string{"entity", "model_status"},
		)

		AnalysisDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "call_analyzer_analysis_duration_seconds",
				Help:    "End to end analysis time including the model call",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"entity"},
		)

		UtterancesAnalyzed = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "call_analyzer_utterances_analyzed_total",
				Help: "Total number of utterances passed through the analyzers",
			},
		)

		FindingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_analyzer_findings_total",
				Help: "Flagged utterances by detector and speaker role",
			},
			[]string{"detector", "role"},
		)

		ViolationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_analyzer_violations_total",
				Help: "Transcripts with at least one finding, by detector",
			},
			[]string{"detector"},
		)

		OvertalkPercentage = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "call_analyzer_overtalk_percentage",
				Help:    "Overtalk as a percentage of call duration",
				Buckets: percentBuckets,
			},
		)

		SilencePercentage = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "call_analyzer_silence_percentage",
				Help:    "Silence as a percentage of call duration",
				Buckets: percentBuckets,
			},
		)

		ModelRequestsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_analyzer_model_requests_total",
				Help: "Total number of language model requests",
			},
			[]string{"entity", "status"},
		)

		ModelLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "call_analyzer_model_latency_seconds",
				Help:    "Language model request latency",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			},
			[]string{"entity"},
		)

		ModelErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_analyzer_model_errors_total",
				Help: "Language model failures by error kind",
			},
			[]string{"kind"},
		)

		AMQPPublishedMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_analyzer_amqp_published_messages_total",
				Help: "Total number of reports published to AMQP",
			},
			[]string{"queue", "status"},
		)

		AMQPConnectionStatus = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "call_analyzer_amqp_connection_status",
				Help: "AMQP connection status (1 = connected, 0 = disconnected)",
			},
		)

		WebSocketClients = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "call_analyzer_websocket_clients",
				Help: "Number of connected report feed clients",
			},
		)

		RateLimitedRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "call_analyzer_rate_limited_requests_total",
				Help: "Requests rejected by the per-client rate limiter",
			},
			[]string{"path"},
		)

		registry.MustRegister(
			AnalysisRequestsTotal,
			AnalysisDuration,
			UtterancesAnalyzed,
			FindingsTotal,
			ViolationsTotal,

			OvertalkPercentage,
			SilencePercentage,

			ModelRequestsTotal,
			ModelLatency,
			ModelErrors,

			AMQPPublishedMessages,
			AMQPConnectionStatus,

			WebSocketClients,

			RateLimitedRequests,
		)

		logger.Info("Prometheus metrics initialized")
	})
}

// GetRegistry returns the prometheus registry
func GetRegistry() *prometheus.Registry {
	return registry
}

// SetMetricsPath sets the HTTP path for metrics endpoint
func SetMetricsPath(path string) {
	defaultMetricsPath = path
}

// EnableMetrics enables or disables metrics collection
func EnableMetrics(enabled bool) {
	metricsEnabled = enabled
}

// IsMetricsEnabled returns whether metrics are enabled and initialized
func IsMetricsEnabled() bool {
	return metricsEnabled && registry != nil
}

// RegisterHandler registers the metrics HTTP handler
func RegisterHandler(mux *http.ServeMux) {
	if IsMetricsEnabled() {
		handler := promhttp.HandlerFor(
			registry,
			promhttp.HandlerOpts{
				EnableOpenMetrics: true,
				Registry:          registry,
			},
		)
		mux.Handle(defaultMetricsPath, handler)
	}
}

// StartMetrics initializes the metrics service
func StartMetrics(logger *logrus.Logger, enabled bool) {
	if !enabled {
		EnableMetrics(false)
		logger.Info("Metrics collection is disabled")
		return
	}

	Init(logger)
	EnableMetrics(true)
	logger.WithField("metrics_path", defaultMetricsPath).Info("Metrics endpoint initialized")
}

// RecordAnalysis records a completed analysis
func RecordAnalysis(entity, modelStatus string, utterances int, duration time.Duration) {
	if !IsMetricsEnabled() {
		return
	}
	AnalysisRequestsTotal.WithLabelValues(entity, modelStatus).Inc()
	AnalysisDuration.WithLabelValues(entity).Observe(duration.Seconds())
	UtterancesAnalyzed.Add(float64(utterances))
}

// RecordFindings records flagged utterances for a detector and role
func RecordFindings(detector, role string, count int) {
	if IsMetricsEnabled() && count > 0 {
		FindingsTotal.WithLabelValues(detector, role).Add(float64(count))
	}
}

// RecordViolation records a transcript flagged by a detector
func RecordViolation(detector string) {
	if IsMetricsEnabled() {
		ViolationsTotal.WithLabelValues(detector).Inc()
	}
}

// RecordCallQuality records the overtalk and silence percentages of a call
func RecordCallQuality(overtalkPct, silencePct float64) {
	if IsMetricsEnabled() {
		OvertalkPercentage.Observe(overtalkPct)
		SilencePercentage.Observe(silencePct)
	}
}

// RecordModelRequest records a language model request outcome
func RecordModelRequest(entity, status string) {
	if IsMetricsEnabled() {
		ModelRequestsTotal.WithLabelValues(entity, status).Inc()
	}
}

// ObserveModelLatency records model latency with a timer function
func ObserveModelLatency(entity string) func() {
	if !IsMetricsEnabled() {
		return func() {}
	}

	start := time.Now()
	return func() {
		ModelLatency.WithLabelValues(entity).Observe(time.Since(start).Seconds())
	}
}

// RecordModelError records a model failure by error kind
func RecordModelError(kind string) {
	if IsMetricsEnabled() {
		ModelErrors.WithLabelValues(kind).Inc()
	}
}

// RecordAMQPPublish records metrics for an AMQP publish
func RecordAMQPPublish(queue, status string) {
	if IsMetricsEnabled() {
		AMQPPublishedMessages.WithLabelValues(queue, status).Inc()
	}
}

// SetAMQPConnectionStatus sets the AMQP connection status
func SetAMQPConnectionStatus(connected bool) {
	if IsMetricsEnabled() {
		if connected {
			AMQPConnectionStatus.Set(1)
		} else {
			AMQPConnectionStatus.Set(0)
		}
	}
}

// SetWebSocketClients sets the number of connected report feed clients
func SetWebSocketClients(count int) {
	if IsMetricsEnabled() {
		WebSocketClients.Set(float64(count))
	}
}

// RecordRateLimited records a request rejected by the rate limiter
func RecordRateLimited(path string) {
	if IsMetricsEnabled() {
		RateLimitedRequests.WithLabelValues(path).Inc()
	}
}
