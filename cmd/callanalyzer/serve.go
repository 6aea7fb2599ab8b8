package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"call-analyzer/pkg/config"
	"call-analyzer/pkg/correlation"
	httpserver "call-analyzer/pkg/http"
	"call-analyzer/pkg/messaging"
	"call-analyzer/pkg/metrics"
	"call-analyzer/pkg/ratelimit"
	"call-analyzer/pkg/telemetry/tracing"
	"call-analyzer/pkg/version"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(logLevel *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(os.Stdout)

			cfg, err := config.Load(logger)
			if err != nil {
				logger.WithError(err).Error("Failed to load configuration")
				return err
			}
			configureLogger(logger, cfg.Logging, *logLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if cfg.HotReload {
				reloader, err := startHotReload(logger, cfg, *logLevel)
				if err != nil {
					logger.WithError(err).Warn("Configuration hot-reload disabled")
				} else {
					defer reloader.Stop()
				}
			}

			return runServer(ctx, logger, cfg)
		},
	}
}

// startHotReload applies logging changes from the loaded .env file at runtime.
// A --log-level override keeps precedence over the file.
func startHotReload(logger *logrus.Logger, cfg *config.Config, override string) (*config.HotReloadManager, error) {
	reloader, err := config.NewHotReloadManager(cfg.EnvFile, cfg, logger)
	if err != nil {
		return nil, err
	}
	reloader.AddCallback(func(_, newConfig *config.Config) error {
		configureLogger(logger, newConfig.Logging, override)
		return nil
	})
	if err := reloader.Start(); err != nil {
		return nil, err
	}
	return reloader, nil
}

func runServer(ctx context.Context, logger *logrus.Logger, cfg *config.Config) error {
	logger.WithFields(logrus.Fields{
		"version":        version.Version,
		"http_port":      cfg.HTTP.Port,
		"llm_enabled":    cfg.LLM.Enabled,
		"llm_model":      cfg.LLM.Model,
		"amqp_enabled":   cfg.Messaging.Enabled,
		"amqp_queue":     cfg.Messaging.QueueName,
		"rate_limit":     cfg.RateLimit.Enabled,
		"default_entity": cfg.Analysis.DefaultEntity,
	}).Info("Starting call analyzer")

	metrics.StartMetrics(logger, cfg.HTTP.EnableMetrics)

	tracingShutdown, err := tracing.Init(ctx, cfg.Tracing, logger)
	if err != nil {
		return err
	}

	engine := buildEngine(logger, cfg, true)

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	hub := httpserver.NewReportHub(logger)
	go hub.Run(hubCtx)
	engine.AddSubscriber(hub)

	var (
		amqpClient *messaging.AMQPClient
		publisher  *messaging.ReportPublisher
	)
	if cfg.Messaging.Enabled {
		amqpClient = messaging.NewAMQPClient(logger, messaging.AMQPConfig{
			URL:       cfg.Messaging.AMQPURL,
			QueueName: cfg.Messaging.QueueName,
		})
		if err := amqpClient.Connect(); err != nil {
			// Reports still reach the websocket feed; publishing fails until reconnect
			logger.WithError(err).Error("Failed to connect to AMQP server")
		}
		publisher = messaging.NewReportPublisher(logger, amqpClient, messaging.DefaultReportPublisherConfig())
		publisher.Start()
		engine.AddSubscriber(publisher)
	}

	var server *httpserver.Server
	if cfg.HTTP.Enabled {
		server = httpserver.NewServer(logger, &httpserver.Config{
			Port:          cfg.HTTP.Port,
			EnableMetrics: cfg.HTTP.EnableMetrics,
			ReadTimeout:   cfg.HTTP.ReadTimeout,
			WriteTimeout:  cfg.HTTP.WriteTimeout,
			IdleTimeout:   60 * time.Second,
			MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		})
		server.SetCorrelationMiddleware(correlation.NewHTTPMiddleware(logger, true))
		server.SetTracingMiddleware(tracing.NewHTTPMiddleware())
		if cfg.RateLimit.Enabled {
			limits := ratelimit.DefaultConfig()
			limits.Enabled = true
			limits.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
			limits.BurstSize = cfg.RateLimit.BurstSize
			limits.IdleTTL = cfg.RateLimit.IdleTTL
			limits.WhitelistedIPs = cfg.RateLimit.WhitelistedIPs
			server.SetRateLimitMiddleware(ratelimit.NewHTTPMiddleware(limits, logger))
		}
		server.SetAnalysisHandler(httpserver.NewAnalysisHandler(logger, engine, cfg.HTTP.MaxBodyBytes))
		server.SetReportHub(hub)
		if amqpClient != nil {
			server.SetAMQPClient(amqpClient)
		}
		server.Start()
	} else {
		logger.Warn("HTTP server disabled, nothing will accept analysis requests")
	}

	<-ctx.Done()
	logger.Info("Received shutdown signal, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Error shutting down HTTP server")
		} else {
			logger.Info("HTTP server shut down successfully")
		}
	}

	cancelHub()

	if publisher != nil {
		publisher.Stop()
	}
	if amqpClient != nil {
		amqpClient.Disconnect()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to flush tracing spans during shutdown")
	}

	logger.Info("Application shut down gracefully")
	return nil
}
