package correlation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Header names carrying correlation IDs
const (
	HTTPHeader          = "X-Correlation-ID"
	HTTPRequestIDHeader = "X-Request-ID"
)

type contextKey int

const (
	correlationIDKey contextKey = iota
	requestInfoKey
)

// ID represents a correlation ID
type ID string

// String returns the string representation of the correlation ID
func (id ID) String() string {
	return string(id)
}

// IsEmpty returns true if the correlation ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// New generates a random correlation ID
func New() ID {
	return ID(uuid.NewString())
}

// FromString returns s as an ID, or a new ID when s is empty
func FromString(s string) ID {
	if s == "" {
		return New()
	}
	return ID(s)
}

// WithCorrelationID returns a new context with the correlation ID attached
func WithCorrelationID(ctx context.Context, id ID) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// FromContext extracts the correlation ID from a context, or ""
func FromContext(ctx context.Context) ID {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(correlationIDKey).(ID); ok {
		return id
	}
	return ""
}

// RequestInfo describes the HTTP request a context belongs to
type RequestInfo struct {
	CorrelationID ID
	StartTime     time.Time
	ClientIP      string
	Method        string
	Path          string
}

// ToContext attaches the request info and its correlation ID to a context
func (r *RequestInfo) ToContext(ctx context.Context) context.Context {
	ctx = WithCorrelationID(ctx, r.CorrelationID)
	return context.WithValue(ctx, requestInfoKey, r)
}

// RequestInfoFromContext returns the request info attached by the middleware
func RequestInfoFromContext(ctx context.Context) (*RequestInfo, bool) {
	if ctx == nil {
		return nil, false
	}
	info, ok := ctx.Value(requestInfoKey).(*RequestInfo)
	return info, ok
}

// Duration returns the time elapsed since the request started
func (r *RequestInfo) Duration() time.Duration {
	return time.Since(r.StartTime)
}
