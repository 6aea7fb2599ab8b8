package llm

import (
	"fmt"
	"strings"

	"call-analyzer/pkg/transcript"
)

const profanityPrompt = `
Analyze this customer service conversation for profane or inappropriate language.
Look for explicit profanity, unprofessional language, and disrespectful terms.
Conversation: %s
Respond with JSON: {
    "agent_profanity": boolean,
    "customer_profanity": boolean,
    "agent_examples": ["specific profane text from agent"],
    "customer_examples": ["specific profane text from customer"]
}
`

const compliancePrompt = `
Analyze this debt collection call for compliance violations. A violation occurs if an agent
shares sensitive info (account balance, SSN, etc.) BEFORE verifying the customer's identity
(by asking for DOB, address, etc.).
Conversation: %s
Respond with JSON: {
    "compliance_violation": boolean,
    "verification_attempted": boolean,
    "violation_examples": ["specific violations"],
    "verification_examples": ["verification attempts"]
}
`

// FormatConversation renders one "{speaker} ({start}s): {text}" line per
// utterance, in transcript order
func FormatConversation(t transcript.Transcript) string {
	lines := make([]string, 0, len(t))
	for _, u := range t {
		lines = append(lines, fmt.Sprintf("%s (%ss): %s", u.Speaker, transcript.FormatSeconds(u.StartTime), u.Text))
	}
	return strings.Join(lines, "\n")
}

// BuildPrompt returns the task prompt for entity with the conversation embedded
func BuildPrompt(entity Entity, t transcript.Transcript) (string, error) {
	conversation := FormatConversation(t)
	switch entity {
	case EntityProfanity:
		return fmt.Sprintf(profanityPrompt, conversation), nil
	case EntityCompliance:
		return fmt.Sprintf(compliancePrompt, conversation), nil
	default:
		_, err := ParseEntity(string(entity))
		return "", err
	}
}

// StripCodeFence removes a leading ```json or ``` marker and a trailing ```
// marker from model output
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
