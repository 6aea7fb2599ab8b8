package ratelimit

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLimiterBurstAndRefill(t *testing.T) {
	limiter := NewLimiter(1, 2, time.Minute, testLogger())
	now := time.Now()

	allowed, _ := limiter.checkAt("10.0.0.1", now)
	assert.True(t, allowed)
	allowed, _ = limiter.checkAt("10.0.0.1", now)
	assert.True(t, allowed)

	allowed, retryAfter := limiter.checkAt("10.0.0.1", now)
	assert.False(t, allowed)
	assert.InDelta(t, time.Second.Seconds(), retryAfter.Seconds(), 0.01)

	// Rejected requests do not consume tokens
	allowed, _ = limiter.checkAt("10.0.0.1", now.Add(time.Second))
	assert.True(t, allowed)

	// Buckets are per client
	allowed, _ = limiter.checkAt("10.0.0.2", now)
	assert.True(t, allowed)
	assert.Equal(t, 2, limiter.Clients())
}

func TestLimiterZeroRate(t *testing.T) {
	limiter := NewLimiter(0, 1, time.Minute, testLogger())
	now := time.Now()

	allowed, _ := limiter.checkAt("client", now)
	assert.True(t, allowed)
	allowed, _ = limiter.checkAt("client", now.Add(time.Hour))
	assert.False(t, allowed)
}

func TestLimiterSweepsIdleClients(t *testing.T) {
	limiter := NewLimiter(1, 1, time.Minute, testLogger())
	now := time.Now()

	limiter.checkAt("a", now)
	limiter.checkAt("b", now.Add(30*time.Second))
	assert.Equal(t, 2, limiter.Clients())

	limiter.checkAt("c", now.Add(2*time.Minute))
	assert.Equal(t, 1, limiter.Clients())
}

func TestLimiterRemaining(t *testing.T) {
	limiter := NewLimiter(1, 3, time.Minute, testLogger())
	assert.Equal(t, 3.0, limiter.Remaining("unknown"))

	assert.True(t, limiter.Allow("client"))
	assert.InDelta(t, 2.0, limiter.Remaining("client"), 0.1)
}
