package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"call-analyzer/pkg/analysis"
	"call-analyzer/pkg/detection"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(title string, headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if title != "" {
		tw.SetTitle(title)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderFindings(title string, findings []detection.Finding) string {
	if len(findings) == 0 {
		return fmt.Sprintf("%s: none\n", title)
	}

	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		rows = append(rows, []string{f.Speaker, f.TimeRange, joinTerms(f.MatchedTerms), f.Text})
	}
	return renderTable(title, []string{"Speaker", "Time", "Matched", "Text"}, rows, nil) + "\n"
}

// renderReport renders the summary, the call-quality metrics and the findings
func renderReport(report *analysis.Report) string {
	var b strings.Builder

	summary := [][]string{
		{"Analysis ID", report.ID},
		{"Utterances", fmt.Sprintf("%d", report.Utterances)},
		{"Speakers", joinTerms(report.Speakers)},
		{"Agent profanity", yesNo(report.Profanity.AgentProfanity)},
		{"Customer profanity", yesNo(report.Profanity.CustomerProfanity)},
		{"Compliance violation", yesNo(report.Compliance.ViolationFound)},
		{"Identity verified", yesNo(report.Compliance.Verified)},
		{"Model analysis", modelSummary(report)},
	}
	b.WriteString(renderTable("Summary", []string{"Check", "Result"}, summary, nil))
	b.WriteString("\n")

	if q := report.CallQuality; q != nil {
		share := q.SpeakerShare()
		composition := q.Composition()
		quality := [][]string{
			{"Total duration (s)", formatFloat(q.TotalDuration)},
			{"Speaking time (s)", formatFloat(q.SpeakingTime)},
			{"Agent speaking (s)", formatFloat(q.AgentSpeakingTime)},
			{"Customer speaking (s)", formatFloat(q.CustomerSpeakingTime)},
			{"Overtalk (s)", formatFloat(q.OvertalkDuration)},
			{"Silence (s)", formatFloat(q.SilenceDuration)},
			{"Overtalk %", formatFloat(q.OvertalkPercentage)},
			{"Silence %", formatFloat(q.SilencePercentage)},
			{"Clean speaking (s)", formatFloat(composition.Speaking)},
			{"Agent share %", formatFloat(share.Agent)},
			{"Customer share %", formatFloat(share.Customer)},
		}
		b.WriteString(renderTable("Call Quality", []string{"Metric", "Value"}, quality, []columnAlignment{alignLeft, alignRight}))
		b.WriteString("\n")
	}

	b.WriteString(renderFindings("Profanity Findings", report.Profanity.Findings))
	b.WriteString(renderFindings("Compliance Findings", report.Compliance.Findings))

	return b.String()
}

func modelSummary(report *analysis.Report) string {
	m := report.Model
	switch {
	case m == nil:
		return "skipped"
	case m.Failed():
		return fmt.Sprintf("%s: %s", m.ErrorKind, m.Error)
	case m.Profanity != nil:
		return fmt.Sprintf("agent profanity %s, customer profanity %s",
			yesNo(m.Profanity.AgentProfanity), yesNo(m.Profanity.CustomerProfanity))
	case m.Compliance != nil:
		return fmt.Sprintf("violation %s, verification attempted %s",
			yesNo(m.Compliance.ComplianceViolation), yesNo(m.Compliance.VerificationAttempted))
	default:
		return m.Status
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
