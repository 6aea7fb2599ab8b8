package callquality

// Composition is the speaking / silence / overtalk split of a call
type Composition struct {
	Speaking float64 `json:"speaking"`
	Silence  float64 `json:"silence"`
	Overtalk float64 `json:"overtalk"`
}

// Composition returns the three-way time breakdown. Speaking excludes
// overtalked seconds so the parts do not double count.
func (m *Metrics) Composition() Composition {
	return Composition{
		Speaking: m.SpeakingTime - m.OvertalkDuration,
		Silence:  m.SilenceDuration,
		Overtalk: m.OvertalkDuration,
	}
}

// SpeakerShare is each role's percentage of total speaking time
type SpeakerShare struct {
	Agent    float64 `json:"agent"`
	Customer float64 `json:"customer"`
}

// SpeakerShare returns agent and customer shares of speaking time, both 0
// when nobody spoke.
func (m *Metrics) SpeakerShare() SpeakerShare {
	return SpeakerShare{
		Agent:    percentage(m.AgentSpeakingTime, m.SpeakingTime),
		Customer: percentage(m.CustomerSpeakingTime, m.SpeakingTime),
	}
}
