package main

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"call-analyzer/pkg/analysis"
	"call-analyzer/pkg/config"
	"call-analyzer/pkg/llm"
)

// newLogger builds a logger that writes to out until the configuration is known
func newLogger(out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(jsonFormatter())
	return logger
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// configureLogger applies the logging section and an optional level override
func configureLogger(logger *logrus.Logger, cfg config.LoggingConfig, override string) {
	if override != "" {
		cfg.Level = override
	}

	if _, err := logrus.ParseLevel(cfg.Level); err != nil {
		logger.WithField("level", cfg.Level).Warn("Invalid log level, falling back to info")
	}
	logger.SetLevel(cfg.ParseLevel())

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logger.SetFormatter(jsonFormatter())
	}
}

// buildEngine wires the analysis engine. The model detector is only built
// when the LLM section is enabled and the caller wants it.
func buildEngine(logger *logrus.Logger, cfg *config.Config, withModel bool) *analysis.Engine {
	var detector *llm.Detector
	if withModel && cfg.LLM.Enabled {
		client := llm.NewGeminiClient(logger, llm.GeminiConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		})
		logger.WithFields(logrus.Fields{
			"llm_model":   client.Model(),
			"temperature": cfg.LLM.Temperature,
		}).Info("Model detector configured")
		if !client.HasCredential() {
			logger.Warn("GEMINI_API_KEY is not set, model analysis will report a configuration error")
		}
		detector = llm.NewDetector(logger, client)
	}

	engine := analysis.NewEngine(logger, detector)
	engine.SetDefaultEntity(cfg.Analysis.DefaultEntity)
	engine.AddSubscriber(&analysis.ReportLogger{Logger: logger})
	return engine
}
