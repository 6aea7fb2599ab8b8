package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/transcript"
	"call-analyzer/pkg/version"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeClient struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

var sampleTranscript = transcript.Transcript{
	{Speaker: "Agent", Text: "Hello, how the hell are you?", StartTime: 0, EndTime: 7},
	{Speaker: "Customer", Text: "Fine.", StartTime: 7.5, EndTime: 12},
}

func TestFormatConversation(t *testing.T) {
	expected := "Agent (0s): Hello, how the hell are you?\nCustomer (7.5s): Fine."
	assert.Equal(t, expected, FormatConversation(sampleTranscript))
	assert.Equal(t, "", FormatConversation(nil))
}

func TestStripCodeFence(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"```json\n{\"a\": true}\n```", `{"a": true}`},
		{"```\n{\"a\": true}```", `{"a": true}`},
		{"  {\"a\": true}  ", `{"a": true}`},
		{"", ""},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, StripCodeFence(tc.input))
	}
}

func TestParseEntity(t *testing.T) {
	e, err := ParseEntity("Profanity Detection")
	require.NoError(t, err)
	assert.Equal(t, EntityProfanity, e)

	_, err = ParseEntity("profanity detection")
	assert.ErrorIs(t, err, errors.ErrInvalidEntity)

	assert.Equal(t, []Entity{EntityProfanity, EntityCompliance}, Entities())
}

func TestBuildPromptEmbedsConversation(t *testing.T) {
	prompt, err := BuildPrompt(EntityCompliance, sampleTranscript)
	require.NoError(t, err)
	assert.Contains(t, prompt, "Customer (7.5s): Fine.")
	assert.Contains(t, prompt, `"verification_attempted": boolean`)

	_, err = BuildPrompt(Entity("Sentiment"), sampleTranscript)
	assert.ErrorIs(t, err, errors.ErrInvalidEntity)
}

func TestDetectProfanity(t *testing.T) {
	client := &fakeClient{response: "```json\n{\"agent_profanity\": true, \"customer_profanity\": false, \"agent_examples\": [\"how the hell are you\"]}\n```"}
	detector := NewDetector(testLogger(), client)

	assessment, err := detector.Detect(context.Background(), "Profanity Detection", sampleTranscript)
	require.NoError(t, err)
	require.NotNil(t, assessment.Profanity)
	assert.Nil(t, assessment.Compliance)
	assert.True(t, assessment.Profanity.AgentProfanity)
	assert.False(t, assessment.Profanity.CustomerProfanity)
	assert.Equal(t, []string{"how the hell are you"}, assessment.Profanity.AgentExamples)
	assert.Equal(t, []string{}, assessment.Profanity.CustomerExamples)

	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "Agent (0s): Hello, how the hell are you?")
}

func TestDetectCompliance(t *testing.T) {
	client := &fakeClient{response: `{"compliance_violation": true, "verification_attempted": false, "violation_examples": ["account balance"]}`}
	detector := NewDetector(testLogger(), client)

	assessment, err := detector.Detect(context.Background(), "Privacy and Compliance Violation", sampleTranscript)
	require.NoError(t, err)
	require.NotNil(t, assessment.Compliance)
	assert.True(t, assessment.Compliance.ComplianceViolation)
	assert.Equal(t, []string{}, assessment.Compliance.VerificationExamples)
}

func TestDetectErrors(t *testing.T) {
	testCases := []struct {
		name     string
		entity   string
		client   Client
		sentinel error
		calls    int
	}{
		{"UnknownEntity", "Sentiment", &fakeClient{response: "{}"}, errors.ErrInvalidEntity, 0},
		{"UnknownEntityWithoutClient", "Sentiment", nil, errors.ErrInvalidEntity, 0},
		{"NoClient", "Profanity Detection", nil, errors.ErrConfiguration, 0},
		{"MalformedJSON", "Profanity Detection", &fakeClient{response: "not json"}, errors.ErrResponseParse, 1},
		{"TransportFailure", "Profanity Detection", &fakeClient{err: fmt.Errorf("connection reset")}, errors.ErrExternalService, 1},
		{"ConfigurationFromClient", "Profanity Detection", &fakeClient{err: errors.NewConfiguration("Gemini API key is not set.")}, errors.ErrConfiguration, 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			detector := NewDetector(testLogger(), tc.client)
			assessment, err := detector.Detect(context.Background(), tc.entity, sampleTranscript)
			assert.Nil(t, assessment)
			assert.ErrorIs(t, err, tc.sentinel)

			if fc, ok := tc.client.(*fakeClient); ok {
				assert.Len(t, fc.prompts, tc.calls)
			}
		})
	}
}

func TestGeminiClientGenerateJSON(t *testing.T) {
	var captured generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.Equal(t, "call-analyzer/"+version.Version, r.Header.Get("User-Agent"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates": [{"content": {"parts": [{"text": "{\"agent_profanity\": "}, {"text": "false}"}]}, "finishReason": "STOP"}]}`)
	}))
	defer server.Close()

	client := NewGeminiClient(testLogger(), GeminiConfig{APIKey: "test-key", BaseURL: server.URL + "/"})
	text, err := client.GenerateJSON(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, `{"agent_profanity": false}`, text)

	assert.Equal(t, "application/json", captured.GenerationConfig.ResponseMimeType)
	assert.Equal(t, 0.1, captured.GenerationConfig.Temperature)
	require.Len(t, captured.Contents, 1)
	assert.Equal(t, "prompt text", captured.Contents[0].Parts[0].Text)
}

func TestGeminiClientErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		client := NewGeminiClient(testLogger(), GeminiConfig{})
		assert.False(t, client.HasCredential())
		assert.Equal(t, DefaultModel, client.Model())

		_, err := client.GenerateJSON(context.Background(), "prompt")
		assert.ErrorIs(t, err, errors.ErrConfiguration)
	})

	t.Run("api error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": {"code": 429, "message": "Resource has been exhausted", "status": "RESOURCE_EXHAUSTED"}}`)
		}))
		defer server.Close()

		client := NewGeminiClient(testLogger(), GeminiConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.GenerateJSON(context.Background(), "prompt")
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrExternalService)
		assert.True(t, strings.Contains(err.Error(), "Resource has been exhausted"))
		assert.Equal(t, http.StatusTooManyRequests, errors.GetErrorFields(err)["status_code"])
	})

	t.Run("no candidates", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"candidates": []}`)
		}))
		defer server.Close()

		client := NewGeminiClient(testLogger(), GeminiConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.GenerateJSON(context.Background(), "prompt")
		assert.ErrorIs(t, err, errors.ErrExternalService)
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		client := NewGeminiClient(testLogger(), GeminiConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.GenerateJSON(ctx, "prompt")
		assert.ErrorIs(t, err, errors.ErrExternalService)
	})
}
