package transcript

import (
	"strconv"
	"strings"
)

// Role is the classified side of the conversation a speaker belongs to
type Role string

const (
	RoleAgent    Role = "agent"
	RoleCustomer Role = "customer"
)

// ClassifyRole maps a free-text speaker label to a role. Any label whose
// lowercase form contains "agent" is an agent ("Agent 1", "AGENT"), every
// other label is the customer.
func ClassifyRole(speaker string) Role {
	if strings.Contains(strings.ToLower(speaker), "agent") {
		return RoleAgent
	}
	return RoleCustomer
}

// Utterance is one line of a transcribed call
type Utterance struct {
	Speaker   string  `json:"speaker" yaml:"speaker"`
	Text      string  `json:"text" yaml:"text"`
	StartTime float64 `json:"start_time" yaml:"start_time"`
	EndTime   float64 `json:"end_time" yaml:"end_time"`
}

// Role returns the classified role of the utterance's speaker
func (u Utterance) Role() Role {
	return ClassifyRole(u.Speaker)
}

// Duration returns end minus start. Malformed input may make it negative.
func (u Utterance) Duration() float64 {
	return u.EndTime - u.StartTime
}

// TimeRange renders the interval as "{start}s - {end}s"
func (u Utterance) TimeRange() string {
	return FormatSeconds(u.StartTime) + "s - " + FormatSeconds(u.EndTime) + "s"
}

// FormatSeconds renders a timestamp with the shortest representation (7, 7.5)
func FormatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Transcript is an ordered utterance sequence in speaking order. It is never
// re-sorted by start time.
type Transcript []Utterance

// Len returns the number of utterances
func (t Transcript) Len() int {
	return len(t)
}

// Speakers returns the distinct raw speaker labels in order of first appearance
func (t Transcript) Speakers() []string {
	seen := make(map[string]bool)
	var speakers []string
	for _, u := range t {
		if seen[u.Speaker] {
			continue
		}
		seen[u.Speaker] = true
		speakers = append(speakers, u.Speaker)
	}
	return speakers
}
