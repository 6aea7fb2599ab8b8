package correlation

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LoggerFromContext returns an entry carrying the correlation fields found in ctx
func LoggerFromContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return logger.WithFields(ContextFields(ctx))
}

// ContextFields extracts the correlation fields from a context
func ContextFields(ctx context.Context) logrus.Fields {
	fields := logrus.Fields{}

	if id := FromContext(ctx); !id.IsEmpty() {
		fields["correlation_id"] = id.String()
	}

	if info, ok := RequestInfoFromContext(ctx); ok {
		if info.ClientIP != "" {
			fields["client_ip"] = info.ClientIP
		}
		if info.Method != "" {
			fields["method"] = info.Method
		}
	}

	return fields
}
