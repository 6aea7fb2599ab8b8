package detection

import (
	"call-analyzer/pkg/lexicon"
	"call-analyzer/pkg/transcript"
)

// ProfanityResult reports which sides of the call used profanity
type ProfanityResult struct {
	AgentProfanity    bool      `json:"agent_profanity"`
	CustomerProfanity bool      `json:"customer_profanity"`
	Findings          []Finding `json:"findings"`
}

// ProfanityDetector flags utterances that contain a profanity lexicon word
type ProfanityDetector struct {
	lexicon *lexicon.Lexicon
}

// NewProfanityDetector creates a detector over the given lexicon; nil selects lexicon.Profanity
func NewProfanityDetector(lex *lexicon.Lexicon) *ProfanityDetector {
	if lex == nil {
		lex = lexicon.Profanity
	}
	return &ProfanityDetector{lexicon: lex}
}

// Detect scans every utterance independently. A role flag, once set, stays set.
func (d *ProfanityDetector) Detect(t transcript.Transcript) ProfanityResult {
	result := ProfanityResult{Findings: make([]Finding, 0)}

	for _, u := range t {
		terms := d.lexicon.Match(u.Text)
		if len(terms) == 0 {
			continue
		}

		role := u.Role()
		result.Findings = append(result.Findings, newFinding(u, role, terms))
		if role == transcript.RoleAgent {
			result.AgentProfanity = true
		} else {
			result.CustomerProfanity = true
		}
	}

	return result
}

var defaultProfanity = NewProfanityDetector(nil)

// DetectProfanity runs the built-in profanity lexicon over a transcript
func DetectProfanity(t transcript.Transcript) ProfanityResult {
	return defaultProfanity.Detect(t)
}
