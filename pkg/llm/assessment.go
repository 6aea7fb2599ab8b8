package llm

// ProfanityAssessment is the model's verdict for EntityProfanity
type ProfanityAssessment struct {
	AgentProfanity    bool     `json:"agent_profanity"`
	CustomerProfanity bool     `json:"customer_profanity"`
	AgentExamples     []string `json:"agent_examples"`
	CustomerExamples  []string `json:"customer_examples"`
}

// ComplianceAssessment is the model's verdict for EntityCompliance
type ComplianceAssessment struct {
	ComplianceViolation   bool     `json:"compliance_violation"`
	VerificationAttempted bool     `json:"verification_attempted"`
	ViolationExamples     []string `json:"violation_examples"`
	VerificationExamples  []string `json:"verification_examples"`
}

// Assessment holds exactly one of the task verdicts, matching Entity
type Assessment struct {
	Entity     Entity                `json:"entity"`
	Profanity  *ProfanityAssessment  `json:"profanity,omitempty"`
	Compliance *ComplianceAssessment `json:"compliance,omitempty"`
}

func (p *ProfanityAssessment) normalize() {
	if p.AgentExamples == nil {
		p.AgentExamples = []string{}
	}
	if p.CustomerExamples == nil {
		p.CustomerExamples = []string{}
	}
}

func (c *ComplianceAssessment) normalize() {
	if c.ViolationExamples == nil {
		c.ViolationExamples = []string{}
	}
	if c.VerificationExamples == nil {
		c.VerificationExamples = []string{}
	}
}
