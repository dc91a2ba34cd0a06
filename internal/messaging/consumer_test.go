package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/efsitax/alertify/internal/errs"
)

func TestDecide(t *testing.T) {
	transient := errs.New(errs.KindTimeout, "timed out")
	permanent := errs.New(errs.KindNotFound, "gone")
	fatal := errors.New("unclassified")

	tests := []struct {
		name        string
		err         error
		attempt     int
		maxAttempts int
		expected    action
	}{
		{"success acks", nil, 0, 5, actionAck},
		{"permanent failure absorbed", permanent, 0, 5, actionAbsorb},
		{"permanent failure absorbed on last attempt", permanent, 4, 5, actionAbsorb},
		{"transient failure retried", transient, 0, 5, actionRetry},
		{"transient failure retried on penultimate attempt", transient, 3, 5, actionRetry},
		{"transient failure dead-lettered once exhausted", transient, 4, 5, actionDeadLetter},
		{"unclassified failure dead-lettered immediately", fatal, 0, 5, actionDeadLetter},
		{"single attempt never retries", transient, 0, 1, actionDeadLetter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, decide(tt.err, tt.attempt, tt.maxAttempts))
		})
	}
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryBackoff(1))
	assert.Equal(t, 4*time.Second, retryBackoff(2))
	assert.Equal(t, 8*time.Second, retryBackoff(3))
	assert.Equal(t, 256*time.Second, retryBackoff(8))

	// Capped at five minutes.
	assert.Equal(t, 300*time.Second, retryBackoff(9))
	assert.Equal(t, 300*time.Second, retryBackoff(20))
}

func TestDecodeEntry(t *testing.T) {
	entry := redis.XMessage{
		ID: "1693000000000-0",
		Values: map[string]interface{}{
			"type":    "SCRAPE_REQUESTED",
			"payload": `{"url":"https://example.com"}`,
			"attempt": "3",
		},
	}

	msg := decodeEntry(entry)
	assert.Equal(t, "1693000000000-0", msg.ID)
	assert.Equal(t, "SCRAPE_REQUESTED", msg.Type)
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(msg.Payload))
	assert.Equal(t, 3, msg.Attempt)
}

func TestDecodeEntryMissingFields(t *testing.T) {
	msg := decodeEntry(redis.XMessage{ID: "1-0", Values: map[string]interface{}{}})
	assert.Equal(t, "1-0", msg.ID)
	assert.Empty(t, msg.Type)
	assert.Empty(t, msg.Payload)
	assert.Equal(t, 0, msg.Attempt)
}
