package llm

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/metrics"
	"call-analyzer/pkg/transcript"
)

var tracer = otel.Tracer("call-analyzer/llm")

// Detector runs one model-based analysis per call to Detect
type Detector struct {
	logger *logrus.Logger
	client Client
}

// NewDetector creates a detector. A nil client makes every Detect report a
// configuration error.
func NewDetector(logger *logrus.Logger, client Client) *Detector {
	return &Detector{
		logger: logger,
		client: client,
	}
}

// Detect validates entity, sends the prompt once and decodes the verdict.
// Failures carry one of ErrInvalidEntity, ErrConfiguration, ErrResponseParse
// or ErrExternalService.
func (d *Detector) Detect(ctx context.Context, entity string, t transcript.Transcript) (*Assessment, error) {
	ctx, span := tracer.Start(ctx, "llm.Detect", trace.WithAttributes(
		attribute.String("entity", entity),
		attribute.Int("utterances", len(t)),
	))
	defer span.End()

	assessment, err := d.detect(ctx, entity, t)
	if err != nil {
		kind := errors.GetErrorCode(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, kind)
		metrics.RecordModelRequest(entity, "error")
		metrics.RecordModelError(kind)

		d.logger.WithFields(logrus.Fields{
			"entity":     entity,
			"error_kind": kind,
			"error":      err.Error(),
		}).Warn("Model analysis failed")
		return nil, err
	}

	metrics.RecordModelRequest(entity, "ok")
	return assessment, nil
}

func (d *Detector) detect(ctx context.Context, name string, t transcript.Transcript) (*Assessment, error) {
	entity, err := ParseEntity(name)
	if err != nil {
		return nil, err
	}

	if d.client == nil {
		return nil, errors.NewConfiguration("Gemini API key is not set.")
	}

	prompt, err := BuildPrompt(entity, t)
	if err != nil {
		return nil, err
	}

	done := metrics.ObserveModelLatency(name)
	raw, err := d.client.GenerateJSON(ctx, prompt)
	done()
	if err != nil {
		return nil, classify(err)
	}

	return decodeAssessment(entity, raw)
}

// classify keeps taxonomy errors as they are and reports anything else as a
// service failure
func classify(err error) error {
	switch {
	case errors.IsErrorType(err, errors.ErrConfiguration),
		errors.IsErrorType(err, errors.ErrExternalService),
		errors.IsErrorType(err, errors.ErrResponseParse),
		errors.IsErrorType(err, errors.ErrInvalidEntity):
		return err
	default:
		return errors.NewExternalService(err)
	}
}

func decodeAssessment(entity Entity, raw string) (*Assessment, error) {
	cleaned := []byte(StripCodeFence(raw))
	assessment := &Assessment{Entity: entity}

	switch entity {
	case EntityProfanity:
		var p ProfanityAssessment
		if err := json.Unmarshal(cleaned, &p); err != nil {
			return nil, errors.NewResponseParse(err)
		}
		p.normalize()
		assessment.Profanity = &p
	case EntityCompliance:
		var c ComplianceAssessment
		if err := json.Unmarshal(cleaned, &c); err != nil {
			return nil, errors.NewResponseParse(err)
		}
		c.normalize()
		assessment.Compliance = &c
	}

	return assessment, nil
}
