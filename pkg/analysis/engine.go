// Package analysis runs every detector over one transcript and assembles the report.
package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"call-analyzer/pkg/callquality"
	"call-analyzer/pkg/detection"
	"call-analyzer/pkg/llm"
	"call-analyzer/pkg/metrics"
	"call-analyzer/pkg/transcript"
)

var tracer = otel.Tracer("call-analyzer/analysis")

// Subscriber receives every finished report
type Subscriber interface {
	OnReport(report *Report)
}

// Request describes one analysis
type Request struct {
	Transcript transcript.Transcript
	// Entity selects the model task; empty uses the engine default
	Entity    string
	SkipModel bool
}

// Engine orchestrates the pattern detectors, the interval analyzer and the
// model detector
type Engine struct {
	logger        *logrus.Logger
	profanity     *detection.ProfanityDetector
	compliance    *detection.ComplianceDetector
	model         *llm.Detector
	defaultEntity string

	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewEngine creates an engine with the built-in lexicons. A nil detector
// disables the model analysis.
func NewEngine(logger *logrus.Logger, detector *llm.Detector) *Engine {
	return &Engine{
		logger:        logger,
		profanity:     detection.NewProfanityDetector(nil),
		compliance:    detection.NewComplianceDetector(nil, nil),
		model:         detector,
		defaultEntity: llm.EntityProfanity.String(),
		subscribers:   make([]Subscriber, 0),
	}
}

// SetDefaultEntity sets the entity used when a request does not name one
func (e *Engine) SetDefaultEntity(entity string) {
	if entity != "" {
		e.defaultEntity = entity
	}
}

// DefaultEntity returns the entity used when a request does not name one
func (e *Engine) DefaultEntity() string {
	return e.defaultEntity
}

// ModelEnabled reports whether a model detector is configured
func (e *Engine) ModelEnabled() bool {
	return e.model != nil
}

// AddSubscriber registers a report subscriber
func (e *Engine) AddSubscriber(sub Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, sub)
}

// RemoveSubscriber removes a report subscriber
func (e *Engine) RemoveSubscriber(sub Subscriber) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, s := range e.subscribers {
		if s == sub {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			return
		}
	}
}

// Analyze runs all analyses concurrently over the same immutable transcript.
// It always returns a report; model failures are recorded in Report.Model.
func (e *Engine) Analyze(ctx context.Context, req Request) *Report {
	start := time.Now()
	entity := req.Entity
	if entity == "" {
		entity = e.defaultEntity
	}

	report := &Report{
		ID:         uuid.New().String(),
		Entity:     entity,
		CreatedAt:  start.UTC(),
		Utterances: req.Transcript.Len(),
		Speakers:   req.Transcript.Speakers(),
	}
	if report.Speakers == nil {
		report.Speakers = []string{}
	}

	ctx, span := tracer.Start(ctx, "analysis.Analyze", trace.WithAttributes(
		attribute.String("analysis_id", report.ID),
		attribute.String("entity", entity),
		attribute.Int("utterances", report.Utterances),
		attribute.Bool("skip_model", req.SkipModel),
	))
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		report.Profanity = e.profanity.Detect(req.Transcript)
		return nil
	})
	g.Go(func() error {
		report.Compliance = e.compliance.Detect(req.Transcript)
		return nil
	})
	g.Go(func() error {
		report.CallQuality = callquality.Analyze(req.Transcript)
		return nil
	})
	if e.model != nil && !req.SkipModel {
		g.Go(func() error {
			assessment, err := e.model.Detect(gctx, entity, req.Transcript)
			if err != nil {
				report.Model = modelFailure(entity, err)
			} else {
				report.Model = modelSuccess(assessment)
			}
			return nil
		})
	}

	// every task captures its own outcome
	_ = g.Wait()

	span.SetAttributes(
		attribute.Bool("profanity", report.Profanity.AgentProfanity || report.Profanity.CustomerProfanity),
		attribute.Bool("compliance_violation", report.Compliance.ViolationFound),
		attribute.String("model_status", report.ModelStatus()),
	)

	e.record(report, time.Since(start))
	e.notify(report)
	return report
}

func (e *Engine) record(report *Report, elapsed time.Duration) {
	for _, f := range report.Profanity.Findings {
		metrics.RecordFindings("profanity", string(f.Role), 1)
	}
	for _, f := range report.Compliance.Findings {
		metrics.RecordFindings("compliance", string(f.Role), 1)
	}
	if len(report.Profanity.Findings) > 0 {
		metrics.RecordViolation("profanity")
	}
	if report.Compliance.ViolationFound {
		metrics.RecordViolation("compliance")
	}
	metrics.RecordCallQuality(report.CallQuality.OvertalkPercentage, report.CallQuality.SilencePercentage)
	metrics.RecordAnalysis(report.Entity, report.ModelStatus(), report.Utterances, elapsed)

	e.logger.WithFields(logrus.Fields{
		"analysis_id":          report.ID,
		"entity":               report.Entity,
		"utterances":           report.Utterances,
		"agent_profanity":      report.Profanity.AgentProfanity,
		"customer_profanity":   report.Profanity.CustomerProfanity,
		"compliance_violation": report.Compliance.ViolationFound,
		"model_status":         report.ModelStatus(),
		"duration_ms":          elapsed.Milliseconds(),
	}).Info("Transcript analyzed")
}

func (e *Engine) notify(report *Report) {
	e.mu.RLock()
	subscribers := append([]Subscriber(nil), e.subscribers...)
	e.mu.RUnlock()

	for _, sub := range subscribers {
		sub.OnReport(report)
	}
}
