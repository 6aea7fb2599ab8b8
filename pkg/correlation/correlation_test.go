package correlation

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsUnique(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := New()
		require.False(t, id.IsEmpty())
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestFromString(t *testing.T) {
	assert.Equal(t, ID("abc"), FromString("abc"))
	assert.False(t, FromString("").IsEmpty())
}

func TestContextRoundTrip(t *testing.T) {
	assert.True(t, FromContext(context.Background()).IsEmpty())

	ctx := WithCorrelationID(context.Background(), ID("call-1"))
	assert.Equal(t, ID("call-1"), FromContext(ctx))

	fields := ContextFields(ctx)
	assert.Equal(t, "call-1", fields["correlation_id"])
}

func TestMiddlewarePropagatesIncomingID(t *testing.T) {
	var seen ID
	handler := NewHTTPMiddleware(nil, false).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		info, ok := RequestInfoFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "203.0.113.7", info.ClientIP)
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", nil)
	req.Header.Set(HTTPRequestIDHeader, "req-42")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, ID("req-42"), seen)
	assert.Equal(t, "req-42", rec.Header().Get(HTTPHeader))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestMiddlewareGeneratesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	handler := NewHTTPMiddleware(logger, true).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/entities", nil))

	id := rec.Header().Get(HTTPHeader)
	assert.NotEmpty(t, id)
	assert.Contains(t, buf.String(), id)
	assert.Contains(t, buf.String(), "HTTP request completed with client error")
}
