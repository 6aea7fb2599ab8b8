package detection

import (
	"call-analyzer/pkg/lexicon"
	"call-analyzer/pkg/transcript"
)

// ComplianceResult reports sensitive disclosures made before identity verification
type ComplianceResult struct {
	ViolationFound bool      `json:"violation_found"`
	Verified       bool      `json:"verified"`
	Findings       []Finding `json:"findings"`
}

// ComplianceDetector enforces verify-before-disclose over agent utterances
type ComplianceDetector struct {
	sensitive    *lexicon.Lexicon
	verification *lexicon.Lexicon
}

// NewComplianceDetector creates a detector; nil lexicons select the built-ins
func NewComplianceDetector(sensitive, verification *lexicon.Lexicon) *ComplianceDetector {
	if sensitive == nil {
		sensitive = lexicon.Sensitive
	}
	if verification == nil {
		verification = lexicon.Verification
	}
	return &ComplianceDetector{sensitive: sensitive, verification: verification}
}

// complianceState is folded over the transcript. verified never goes back to false.
type complianceState struct {
	verified bool
	findings []Finding
}

func (d *ComplianceDetector) step(s complianceState, u transcript.Utterance) complianceState {
	role := u.Role()
	if role != transcript.RoleAgent {
		return s
	}

	// the disclosure check sees the state as the utterance entered it
	wasVerified := s.verified
	if !s.verified && d.verification.Matches(u.Text) {
		s.verified = true
	}

	if !wasVerified {
		if terms := d.sensitive.Match(u.Text); len(terms) > 0 {
			s.findings = append(s.findings, newFinding(u, role, terms))
		}
	}
	return s
}

// Detect evaluates the transcript in order starting from an unverified state
func (d *ComplianceDetector) Detect(t transcript.Transcript) ComplianceResult {
	state := complianceState{findings: make([]Finding, 0)}
	for _, u := range t {
		state = d.step(state, u)
	}

	return ComplianceResult{
		ViolationFound: len(state.findings) > 0,
		Verified:       state.verified,
		Findings:       state.findings,
	}
}

var defaultCompliance = NewComplianceDetector(nil, nil)

// DetectCompliance runs the built-in sensitive and verification lexicons over a transcript
func DetectCompliance(t transcript.Transcript) ComplianceResult {
	return defaultCompliance.Detect(t)
}
