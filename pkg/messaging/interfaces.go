package messaging

import "context"

// Publisher sends an encoded message to a broker queue
type Publisher interface {
	Publish(ctx context.Context, messageID string, body []byte) error
	QueueName() string
	IsConnected() bool
}
