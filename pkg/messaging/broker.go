package messaging

import (
	"context"
	"encoding/json"
	"time"
)

// Broker publishes outbox events. Channels are named after the event type;
// consumers subscribe on the broker itself (Redis pub/sub), outside this API.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	OccurredAt time.Time       `json:"occurred_at"`
}
