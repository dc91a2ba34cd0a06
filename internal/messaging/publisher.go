// Package messaging carries the pipeline's request/result traffic over
// Redis Streams with consumer groups. Transient failures are redelivered
// with exponential backoff through a per-stream retry set; permanent
// failures are absorbed; everything else lands on the dead-letter stream.
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Stream entry field names.
const (
	fieldType       = "type"
	fieldPayload    = "payload"
	fieldAttempt    = "attempt"
	fieldEnqueuedAt = "enqueued_at"
)

type Publisher struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewPublisher(rdb *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		rdb:    rdb,
		logger: logger.With("component", "publisher"),
	}
}

// Publish appends one event to a stream. The payload is JSON-encoded.
func (p *Publisher) Publish(ctx context.Context, stream, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			fieldType:       eventType,
			fieldPayload:    string(data),
			fieldAttempt:    "0",
			fieldEnqueuedAt: time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	if _, err := p.rdb.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", stream, err)
	}

	p.logger.Debug("event published", "stream", stream, "type", eventType)
	return nil
}
