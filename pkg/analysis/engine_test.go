package analysis

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-analyzer/pkg/errors"
	"call-analyzer/pkg/llm"
	"call-analyzer/pkg/transcript"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func loadFixture(t *testing.T, name string) transcript.Transcript {
	t.Helper()
	f, err := os.Open(filepath.Join("testdata", name))
	require.NoError(t, err)
	defer f.Close()

	tr, err := transcript.Decode(f, transcript.FormatJSON)
	require.NoError(t, err)
	return tr
}

type stubClient struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
}

func (s *stubClient) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.response, s.err
}

type recordingSubscriber struct {
	mu      sync.Mutex
	reports []*Report
}

func (r *recordingSubscriber) OnReport(report *Report) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func TestAnalyzeSampleCalls(t *testing.T) {
	engine := NewEngine(testLogger(), nil)

	t.Run("good call", func(t *testing.T) {
		report := engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "good_call.json")})

		assert.False(t, report.Profanity.AgentProfanity)
		assert.False(t, report.Profanity.CustomerProfanity)
		assert.Empty(t, report.Profanity.Findings)

		// the disclosure and the date of birth request share one utterance
		assert.True(t, report.Compliance.ViolationFound)
		assert.True(t, report.Compliance.Verified)
		require.Len(t, report.Compliance.Findings, 1)
		assert.Equal(t, []string{"balance", "outstanding"}, report.Compliance.Findings[0].MatchedTerms)
		assert.Equal(t, "11s - 24s", report.Compliance.Findings[0].TimeRange)

		cq := report.CallQuality
		assert.Equal(t, 85.0, cq.TotalDuration)
		assert.Equal(t, 97.5, cq.SpeakingTime)
		assert.Equal(t, 73.0, cq.AgentSpeakingTime)
		assert.Equal(t, 24.5, cq.CustomerSpeakingTime)
		assert.Equal(t, 13.0, cq.OvertalkDuration)
		assert.Equal(t, 0.5, cq.SilenceDuration)
		assert.Equal(t, 15.29, cq.OvertalkPercentage)
		assert.Equal(t, 0.59, cq.SilencePercentage)
		assert.Len(t, cq.SpeakingIntervals, 15)
	})

	t.Run("profanity call", func(t *testing.T) {
		report := engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "profanity_call.json")})

		assert.True(t, report.Profanity.AgentProfanity)
		assert.False(t, report.Profanity.CustomerProfanity)
		require.Len(t, report.Profanity.Findings, 4)
		assert.Equal(t, []string{"hell"}, report.Profanity.Findings[0].MatchedTerms)
		assert.Equal(t, []string{"crap"}, report.Profanity.Findings[2].MatchedTerms)
		assert.Equal(t, []string{"hell", "damn"}, report.Profanity.Findings[3].MatchedTerms)
		for _, f := range report.Profanity.Findings {
			assert.Equal(t, "agent", f.Speaker)
		}

		assert.False(t, report.Compliance.ViolationFound)
		assert.True(t, report.Compliance.Verified)

		assert.Equal(t, 80.0, report.CallQuality.TotalDuration)
		assert.Equal(t, 11.0, report.CallQuality.OvertalkDuration)
		assert.Equal(t, 13.75, report.CallQuality.OvertalkPercentage)
		assert.Equal(t, 0.5, report.CallQuality.SilenceDuration)
	})

	t.Run("privacy call", func(t *testing.T) {
		report := engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "privacy_call.json")})

		assert.False(t, report.Profanity.AgentProfanity)
		assert.True(t, report.Compliance.ViolationFound)
		require.Len(t, report.Compliance.Findings, 1)
		assert.Equal(t, []string{"balance"}, report.Compliance.Findings[0].MatchedTerms)
		assert.True(t, report.Compliance.Verified)

		assert.Equal(t, 46.0, report.CallQuality.TotalDuration)
		assert.Equal(t, 0.0, report.CallQuality.OvertalkDuration)
		assert.Equal(t, 6.0, report.CallQuality.SilenceDuration)
		assert.Equal(t, 13.04, report.CallQuality.SilencePercentage)
		assert.True(t, report.HasViolations())
	})
}

func TestAnalyzeReportMetadata(t *testing.T) {
	engine := NewEngine(testLogger(), nil)
	engine.SetDefaultEntity(llm.EntityCompliance.String())

	report := engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "privacy_call.json")})

	_, err := uuid.Parse(report.ID)
	assert.NoError(t, err)
	assert.Equal(t, "Privacy and Compliance Violation", report.Entity)
	assert.Equal(t, 5, report.Utterances)
	assert.ElementsMatch(t, []string{"Agent", "Customer"}, report.Speakers)
	assert.False(t, report.CreatedAt.IsZero())
	assert.Nil(t, report.Model)
	assert.Equal(t, "skipped", report.ModelStatus())
	assert.False(t, engine.ModelEnabled())

	other := engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "privacy_call.json")})
	assert.NotEqual(t, report.ID, other.ID)
}

func TestAnalyzeEmptyTranscript(t *testing.T) {
	engine := NewEngine(testLogger(), nil)
	report := engine.Analyze(context.Background(), Request{})

	assert.Equal(t, 0, report.Utterances)
	assert.Equal(t, []string{}, report.Speakers)
	assert.Empty(t, report.Profanity.Findings)
	assert.Empty(t, report.Compliance.Findings)
	assert.Equal(t, 0.0, report.CallQuality.TotalDuration)
	assert.Equal(t, 0.0, report.CallQuality.SilencePercentage)
	assert.False(t, report.HasViolations())
}

func TestAnalyzeWithModel(t *testing.T) {
	client := &stubClient{response: "```json\n{\"agent_profanity\": true, \"customer_profanity\": false, \"agent_examples\": [\"hell\"], \"customer_examples\": []}\n```"}
	engine := NewEngine(testLogger(), llm.NewDetector(testLogger(), client))
	require.True(t, engine.ModelEnabled())

	report := engine.Analyze(context.Background(), Request{
		Transcript: loadFixture(t, "profanity_call.json"),
		Entity:     "Profanity Detection",
	})

	require.NotNil(t, report.Model)
	assert.Equal(t, StatusOK, report.Model.Status)
	assert.Equal(t, "Profanity Detection", report.Model.Entity)
	require.NotNil(t, report.Model.Profanity)
	assert.True(t, report.Model.Profanity.AgentProfanity)
	assert.Nil(t, report.Model.Compliance)
	assert.Equal(t, 1, client.calls)

	skipped := engine.Analyze(context.Background(), Request{
		Transcript: loadFixture(t, "profanity_call.json"),
		SkipModel:  true,
	})
	assert.Nil(t, skipped.Model)
	assert.Equal(t, 1, client.calls)
}

func TestAnalyzeModelFailuresKeepPatternResults(t *testing.T) {
	testCases := []struct {
		name   string
		entity string
		client *stubClient
		kind   string
	}{
		{"UnknownEntity", "Sentiment", &stubClient{response: "{}"}, errors.CodeInvalidEntity},
		{"MissingKey", "Profanity Detection", &stubClient{err: errors.NewConfiguration("Gemini API key is not set.")}, errors.CodeConfiguration},
		{"BadJSON", "Profanity Detection", &stubClient{response: "I think the agent was rude"}, errors.CodeResponseParse},
		{"ServiceDown", "Privacy and Compliance Violation", &stubClient{err: io.ErrUnexpectedEOF}, errors.CodeExternalService},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			engine := NewEngine(testLogger(), llm.NewDetector(testLogger(), tc.client))
			report := engine.Analyze(context.Background(), Request{
				Transcript: loadFixture(t, "profanity_call.json"),
				Entity:     tc.entity,
			})

			require.NotNil(t, report.Model)
			assert.True(t, report.Model.Failed())
			assert.Equal(t, StatusError, report.Model.Status)
			assert.Equal(t, tc.kind, report.Model.ErrorKind)
			assert.NotEmpty(t, report.Model.Error)
			assert.Equal(t, tc.entity, report.Model.Entity)

			assert.True(t, report.Profanity.AgentProfanity)
			assert.Len(t, report.Profanity.Findings, 4)
			assert.Equal(t, 80.0, report.CallQuality.TotalDuration)
		})
	}
}

func TestSubscribersReceiveReports(t *testing.T) {
	engine := NewEngine(testLogger(), nil)
	sub := &recordingSubscriber{}
	engine.AddSubscriber(sub)
	engine.AddSubscriber(&ReportLogger{Logger: testLogger()})

	report := engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "good_call.json")})
	require.Len(t, sub.reports, 1)
	assert.Same(t, report, sub.reports[0])

	engine.RemoveSubscriber(sub)
	engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "good_call.json")})
	assert.Len(t, sub.reports, 1)
}

func TestReportJSON(t *testing.T) {
	engine := NewEngine(testLogger(), llm.NewDetector(testLogger(), &stubClient{err: io.EOF}))
	report := engine.Analyze(context.Background(), Request{Transcript: loadFixture(t, "privacy_call.json")})

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, report.ID, decoded["analysis_id"])

	cq, ok := decoded["call_quality"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, cq, "speaking_intervals")
	assert.Contains(t, cq, "overtalk_percentage")

	model, ok := decoded["model"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "error", model["status"])
	assert.Equal(t, errors.CodeExternalService, model["error_kind"])
	assert.NotContains(t, model, "profanity")
}
