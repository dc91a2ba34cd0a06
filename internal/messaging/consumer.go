package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/metrics"
)

// Message is one delivery handed to a handler. Attempt counts prior
// deliveries of the same logical message.
type Message struct {
	ID      string
	Type    string
	Payload []byte
	Attempt int
}

// HandlerFunc processes one message. Returned errors are classified via
// the errs taxonomy to pick between absorb, redeliver and dead-letter.
type HandlerFunc func(ctx context.Context, msg Message) error

type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	// MaxAttempts bounds redelivery of transient failures; once exhausted
	// the message is dead-lettered instead of retried again.
	MaxAttempts      int
	DeadLetterStream string
	Block            time.Duration
	BatchSize        int
}

type Consumer struct {
	rdb     *redis.Client
	cfg     ConsumerConfig
	handler HandlerFunc
	logger  *slog.Logger
}

func NewConsumer(rdb *redis.Client, cfg ConsumerConfig, handler HandlerFunc, logger *slog.Logger) *Consumer {
	if cfg.Block == 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}

	return &Consumer{
		rdb:     rdb,
		cfg:     cfg,
		handler: handler,
		logger:  logger.With("component", "consumer", "stream", cfg.Stream),
	}
}

// Run consumes the stream until ctx is cancelled. It also drives the
// retry pump that moves due retries back onto the stream.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("consumer started", "group", c.cfg.Group, "max_attempts", c.cfg.MaxAttempts)

	go c.runRetryPump(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return ctx.Err()
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    int64(c.cfg.BatchSize),
			Block:    c.cfg.Block,
		}).Result()

		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to read from stream", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, entry := range stream.Messages {
				c.process(ctx, entry)
			}
		}
	}
}

func (c *Consumer) process(ctx context.Context, entry redis.XMessage) {
	msg := decodeEntry(entry)

	handlerErr := c.handler(ctx, msg)

	switch decide(handlerErr, msg.Attempt, c.cfg.MaxAttempts) {
	case actionAck:

	case actionAbsorb:
		c.logger.Warn("permanent failure absorbed",
			"id", msg.ID, "type", msg.Type, "error", handlerErr)

	case actionRetry:
		if err := c.scheduleRetry(ctx, msg); err != nil {
			c.logger.Error("failed to schedule retry, dead-lettering instead",
				"id", msg.ID, "error", err)
			if !c.deadLetter(ctx, msg, handlerErr) {
				return
			}
			break
		}
		metrics.MessagesRetried.WithLabelValues(c.cfg.Stream).Inc()
		c.logger.Info("transient failure, retry scheduled",
			"id", msg.ID, "attempt", msg.Attempt+1, "error", handlerErr)

	case actionDeadLetter:
		if !c.deadLetter(ctx, msg, handlerErr) {
			// Left pending in the group so an operator can XCLAIM it; a
			// message must never be dropped silently.
			return
		}
	}

	if err := c.rdb.XAck(ctx, c.cfg.Stream, c.cfg.Group, entry.ID).Err(); err != nil {
		c.logger.Error("failed to acknowledge message", "id", entry.ID, "error", err)
	}
}

type action int

const (
	actionAck action = iota
	actionAbsorb
	actionRetry
	actionDeadLetter
)

// decide maps a handler outcome onto the redelivery protocol. This is the
// single place where the failure taxonomy turns into queue behavior.
func decide(err error, attempt, maxAttempts int) action {
	if err == nil {
		return actionAck
	}

	kind := errs.KindOf(err)
	if kind.Permanent() {
		return actionAbsorb
	}
	if kind.Retryable() && attempt+1 < maxAttempts {
		return actionRetry
	}
	return actionDeadLetter
}

// retryEnvelope is the zset member holding a message awaiting redelivery.
type retryEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

func (c *Consumer) scheduleRetry(ctx context.Context, msg Message) error {
	envelope, err := json.Marshal(retryEnvelope{
		Type:    msg.Type,
		Payload: msg.Payload,
		Attempt: msg.Attempt + 1,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal retry envelope: %w", err)
	}

	readyAt := time.Now().Add(retryBackoff(msg.Attempt + 1))
	err = c.rdb.ZAdd(ctx, c.retryKey(), redis.Z{
		Score:  float64(readyAt.UnixMilli()),
		Member: string(envelope),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add to retry set: %w", err)
	}

	return nil
}

// retryBackoff mirrors the outbox backoff curve: 2s, 4s, 8s... capped at
// five minutes.
func retryBackoff(attempt int) time.Duration {
	backoffSeconds := 1 << attempt
	if backoffSeconds > 300 {
		backoffSeconds = 300
	}
	return time.Duration(backoffSeconds) * time.Second
}

// runRetryPump moves due retry envelopes back onto the stream.
func (c *Consumer) runRetryPump(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.pumpRetries(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("retry pump failed", "error", err)
			}
		}
	}
}

func (c *Consumer) pumpRetries(ctx context.Context) error {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	members, err := c.rdb.ZRangeByScore(ctx, c.retryKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: int64(c.cfg.BatchSize),
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to read retry set: %w", err)
	}

	for _, member := range members {
		var envelope retryEnvelope
		if err := json.Unmarshal([]byte(member), &envelope); err != nil {
			c.logger.Error("dropping malformed retry envelope", "error", err)
			c.rdb.ZRem(ctx, c.retryKey(), member)
			continue
		}

		err := c.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: c.cfg.Stream,
			Values: map[string]interface{}{
				fieldType:       envelope.Type,
				fieldPayload:    string(envelope.Payload),
				fieldAttempt:    strconv.Itoa(envelope.Attempt),
				fieldEnqueuedAt: time.Now().UTC().Format(time.RFC3339Nano),
			},
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to requeue retry: %w", err)
		}

		if err := c.rdb.ZRem(ctx, c.retryKey(), member).Err(); err != nil {
			return fmt.Errorf("failed to remove requeued retry: %w", err)
		}
	}

	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg Message, cause error) bool {
	errMsg := ""
	if cause != nil {
		errMsg = cause.Error()
	}

	err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DeadLetterStream,
		Values: map[string]interface{}{
			fieldType:     msg.Type,
			fieldPayload:  string(msg.Payload),
			fieldAttempt:  strconv.Itoa(msg.Attempt),
			"source":      c.cfg.Stream,
			"error":       errMsg,
			"error_kind":  errs.KindOf(cause).String(),
			"dead_at":     time.Now().UTC().Format(time.RFC3339Nano),
			"original_id": msg.ID,
		},
	}).Err()
	if err != nil {
		c.logger.Error("failed to dead-letter message", "id", msg.ID, "error", err)
		return false
	}

	metrics.MessagesDeadLettered.WithLabelValues(c.cfg.Stream).Inc()
	c.logger.Error("message dead-lettered",
		"id", msg.ID, "type", msg.Type, "attempt", msg.Attempt, "cause", errMsg)
	return true
}

func (c *Consumer) retryKey() string {
	return c.cfg.Stream + ":retry"
}

func decodeEntry(entry redis.XMessage) Message {
	msg := Message{ID: entry.ID}

	if v, ok := entry.Values[fieldType].(string); ok {
		msg.Type = v
	}
	if v, ok := entry.Values[fieldPayload].(string); ok {
		msg.Payload = []byte(v)
	}
	if v, ok := entry.Values[fieldAttempt].(string); ok {
		if n, err := strconv.Atoi(v); err == nil {
			msg.Attempt = n
		}
	}

	return msg
}
