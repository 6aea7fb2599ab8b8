package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"call-analyzer/pkg/analysis"
	"call-analyzer/pkg/callquality"
)

type publishedMessage struct {
	id   string
	body []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (f *fakePublisher) Publish(ctx context.Context, messageID string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, publishedMessage{id: messageID, body: body})
	return nil
}

func (f *fakePublisher) QueueName() string { return "call_analysis_reports" }

func (f *fakePublisher) IsConnected() bool { return true }

func (f *fakePublisher) published() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]publishedMessage(nil), f.messages...)
}

func sampleReport(id string) *analysis.Report {
	return &analysis.Report{
		ID:          id,
		Entity:      "Profanity Detection",
		CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Utterances:  2,
		CallQuality: &callquality.Metrics{TotalDuration: 15},
	}
}

func TestReportPublisherPublishesEvents(t *testing.T) {
	fake := &fakePublisher{}
	publisher := NewReportPublisher(testLogger(), fake, ReportPublisherConfig{})
	publisher.Start()

	publisher.OnReport(sampleReport("a-1"))
	publisher.OnReport(sampleReport("a-2"))
	publisher.Stop()

	messages := fake.published()
	require.Len(t, messages, 2)
	assert.Equal(t, "a-1", messages[0].id)
	assert.Equal(t, "a-2", messages[1].id)

	var event map[string]interface{}
	require.NoError(t, json.Unmarshal(messages[0].body, &event))
	assert.Equal(t, "analysis_report", event["type"])
	assert.Equal(t, "a-1", event["analysis_id"])

	data, ok := event["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Profanity Detection", data["entity"])

	stats := publisher.Stats()
	assert.EqualValues(t, 2, stats.Queued)
	assert.EqualValues(t, 2, stats.Published)
	assert.Zero(t, stats.Failed)
}

func TestReportPublisherFailuresAreCounted(t *testing.T) {
	fake := &fakePublisher{err: errors.New("not connected to AMQP server")}
	publisher := NewReportPublisher(testLogger(), fake, ReportPublisherConfig{})
	publisher.Start()

	publisher.OnReport(sampleReport("a-1"))
	publisher.Stop()

	stats := publisher.Stats()
	assert.EqualValues(t, 1, stats.Failed)
	assert.Zero(t, stats.Published)
	assert.Equal(t, "not connected to AMQP server", stats.LastError)
}

func TestReportPublisherDropsWhenQueueFull(t *testing.T) {
	fake := &fakePublisher{}
	publisher := NewReportPublisher(testLogger(), fake, ReportPublisherConfig{QueueSize: 1})

	// Worker not started, so the second report cannot be queued
	publisher.OnReport(sampleReport("a-1"))
	publisher.OnReport(sampleReport("a-2"))

	stats := publisher.Stats()
	assert.EqualValues(t, 1, stats.Queued)
	assert.EqualValues(t, 1, stats.Dropped)
}

func TestReportPublisherIgnoresNilReport(t *testing.T) {
	fake := &fakePublisher{}
	publisher := NewReportPublisher(testLogger(), fake, ReportPublisherConfig{})

	publisher.OnReport(nil)

	assert.Equal(t, PublisherStats{}, publisher.Stats())
}

func TestReportPublisherStopIsIdempotent(t *testing.T) {
	publisher := NewReportPublisher(testLogger(), &fakePublisher{}, ReportPublisherConfig{})

	publisher.Stop()
	publisher.Start()
	publisher.Start()
	publisher.Stop()
	publisher.Stop()
}
