package analysis

import (
	"github.com/sirupsen/logrus"
)

// ReportLogger logs a one-line summary of every report
type ReportLogger struct {
	Logger *logrus.Logger
}

// OnReport implements Subscriber
func (s *ReportLogger) OnReport(report *Report) {
	if s == nil || s.Logger == nil || report == nil {
		return
	}

	fields := logrus.Fields{
		"analysis_id":      report.ID,
		"profanity_count":  len(report.Profanity.Findings),
		"compliance_count": len(report.Compliance.Findings),
		"overtalk_pct":     report.CallQuality.OvertalkPercentage,
		"silence_pct":      report.CallQuality.SilencePercentage,
		"model_status":     report.ModelStatus(),
	}
	if report.Model.Failed() {
		fields["model_error_kind"] = report.Model.ErrorKind
	}

	if report.HasViolations() {
		s.Logger.WithFields(fields).Warn("Call violations detected")
		return
	}
	s.Logger.WithFields(fields).Debug("Call report")
}
