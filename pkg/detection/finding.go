// Package detection implements the pattern-based profanity and compliance checks.
package detection

import (
	"strings"

	"call-analyzer/pkg/transcript"
)

// Finding is a single flagged utterance
type Finding struct {
	Speaker      string          `json:"speaker"`
	Role         transcript.Role `json:"role"`
	Text         string          `json:"text"`
	Start        float64         `json:"start_time"`
	End          float64         `json:"end_time"`
	TimeRange    string          `json:"time_range"`
	MatchedTerms []string        `json:"matched_terms"`
}

func newFinding(u transcript.Utterance, role transcript.Role, terms []string) Finding {
	return Finding{
		Speaker:      strings.ToLower(u.Speaker),
		Role:         role,
		Text:         u.Text,
		Start:        u.StartTime,
		End:          u.EndTime,
		TimeRange:    u.TimeRange(),
		MatchedTerms: terms,
	}
}
