package analysis

import (
	"time"

	"call-analyzer/pkg/callquality"
	"call-analyzer/pkg/detection"
	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/llm"
)

// Model outcome statuses
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ModelOutcome is either a model verdict or the reason the model analysis
// failed. A failed outcome never fails the report.
type ModelOutcome struct {
	Status     string                    `json:"status"`
	Entity     string                    `json:"entity"`
	Profanity  *llm.ProfanityAssessment  `json:"profanity,omitempty"`
	Compliance *llm.ComplianceAssessment `json:"compliance,omitempty"`
	ErrorKind  string                    `json:"error_kind,omitempty"`
	Error      string                    `json:"error,omitempty"`
}

// Failed reports whether the model analysis ended in an error
func (m *ModelOutcome) Failed() bool {
	return m != nil && m.Status == StatusError
}

func modelSuccess(assessment *llm.Assessment) *ModelOutcome {
	return &ModelOutcome{
		Status:     StatusOK,
		Entity:     assessment.Entity.String(),
		Profanity:  assessment.Profanity,
		Compliance: assessment.Compliance,
	}
}

func modelFailure(entity string, err error) *ModelOutcome {
	return &ModelOutcome{
		Status:    StatusError,
		Entity:    entity,
		ErrorKind: errors.GetErrorCode(err),
		Error:     errors.GetErrorMessage(err),
	}
}

// Report is the combined result of one transcript analysis
type Report struct {
	ID          string                     `json:"analysis_id"`
	Entity      string                     `json:"entity"`
	CreatedAt   time.Time                  `json:"created_at"`
	Utterances  int                        `json:"utterances"`
	Speakers    []string                   `json:"speakers"`
	Profanity   detection.ProfanityResult  `json:"profanity"`
	Compliance  detection.ComplianceResult `json:"compliance"`
	CallQuality *callquality.Metrics       `json:"call_quality"`
	Model       *ModelOutcome              `json:"model,omitempty"`
}

// HasViolations reports whether any pattern-based detector flagged the call
func (r *Report) HasViolations() bool {
	return r.Profanity.AgentProfanity || r.Profanity.CustomerProfanity || r.Compliance.ViolationFound
}

// ModelStatus returns the model outcome status, or "skipped" when the model did not run
func (r *Report) ModelStatus() string {
	if r.Model == nil {
		return "skipped"
	}
	return r.Model.Status
}

// EventTypeReport is the event type pushed to report consumers
const EventTypeReport = "analysis_report"

// ReportEvent wraps a report for delivery over AMQP or the websocket feed
type ReportEvent struct {
	Type       string    `json:"type"`
	AnalysisID string    `json:"analysis_id"`
	Timestamp  time.Time `json:"timestamp"`
	Data       *Report   `json:"data"`
}

// NewReportEvent builds the delivery envelope for a report
func NewReportEvent(report *Report) ReportEvent {
	return ReportEvent{
		Type:       EventTypeReport,
		AnalysisID: report.ID,
		Timestamp:  report.CreatedAt,
		Data:       report,
	}
}
