// Package callquality computes timing metrics (speaking time, overtalk,
// silence) from the utterance intervals of a call.
package callquality

import (
	"math"

	"call-analyzer/pkg/transcript"
)

// SpeakingInterval is the time span of a single utterance
type SpeakingInterval struct {
	Start float64         `json:"start"`
	End   float64         `json:"end"`
	Role  transcript.Role `json:"speaker"`
}

// Duration returns end minus start, unclamped
func (i SpeakingInterval) Duration() float64 {
	return i.End - i.Start
}

// Overlap returns the length of the intersection of two intervals, or 0
func (i SpeakingInterval) Overlap(other SpeakingInterval) float64 {
	return math.Max(0, math.Min(i.End, other.End)-math.Max(i.Start, other.Start))
}

// Metrics is the call-quality summary of one transcript
type Metrics struct {
	TotalDuration        float64            `json:"total_duration"`
	SpeakingTime         float64            `json:"speaking_time"`
	AgentSpeakingTime    float64            `json:"agent_speaking_time"`
	CustomerSpeakingTime float64            `json:"customer_speaking_time"`
	OvertalkDuration     float64            `json:"overtalk_duration"`
	SilenceDuration      float64            `json:"silence_duration"`
	OvertalkPercentage   float64            `json:"overtalk_percentage"`
	SilencePercentage    float64            `json:"silence_percentage"`
	SpeakingIntervals    []SpeakingInterval `json:"speaking_intervals"`
}

// Intervals derives one interval per utterance, in transcript order
func Intervals(t transcript.Transcript) []SpeakingInterval {
	intervals := make([]SpeakingInterval, 0, len(t))
	for _, u := range t {
		intervals = append(intervals, SpeakingInterval{
			Start: u.StartTime,
			End:   u.EndTime,
			Role:  u.Role(),
		})
	}
	return intervals
}

// Analyze computes the metrics for a transcript. An empty transcript yields
// all-zero metrics.
func Analyze(t transcript.Transcript) *Metrics {
	intervals := Intervals(t)
	m := &Metrics{SpeakingIntervals: intervals}
	if len(intervals) == 0 {
		return m
	}

	m.TotalDuration = intervals[0].End
	for _, iv := range intervals {
		if iv.Role == transcript.RoleAgent {
			m.AgentSpeakingTime += iv.Duration()
		} else {
			m.CustomerSpeakingTime += iv.Duration()
		}
		if iv.End > m.TotalDuration {
			m.TotalDuration = iv.End
		}
	}
	m.SpeakingTime = m.AgentSpeakingTime + m.CustomerSpeakingTime
	m.OvertalkDuration = Overtalk(intervals)

	// speaking time counts overtalked seconds once per speaker
	m.SilenceDuration = math.Max(0, m.TotalDuration-m.SpeakingTime+m.OvertalkDuration)

	m.OvertalkPercentage = percentage(m.OvertalkDuration, m.TotalDuration)
	m.SilencePercentage = percentage(m.SilenceDuration, m.TotalDuration)
	return m
}

// Overtalk sums the overlap of every unordered pair of intervals whose roles
// differ. Three or more concurrent speakers are counted once per pair.
func Overtalk(intervals []SpeakingInterval) float64 {
	var total float64
	for i := 0; i < len(intervals); i++ {
		for j := i + 1; j < len(intervals); j++ {
			if intervals[i].Role == intervals[j].Role {
				continue
			}
			total += intervals[i].Overlap(intervals[j])
		}
	}
	return total
}

func percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
