package scraper

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/messaging"
	"github.com/efsitax/alertify/internal/ratelimit"
)

// ResultPublisher emits completed-scrape events back toward the tracking
// side.
type ResultPublisher interface {
	Publish(ctx context.Context, stream, eventType string, payload any) error
}

// Worker consumes scrape requests and turns them into completed-scrape
// events. Classification of failures is left to the messaging layer; the
// worker only produces errors carrying the right kind.
type Worker struct {
	dispatcher *Dispatcher
	publisher  ResultPublisher
	limiter    ratelimit.RateLimiter
	logger     *slog.Logger
}

func NewWorker(dispatcher *Dispatcher, publisher ResultPublisher, limiter ratelimit.RateLimiter, logger *slog.Logger) *Worker {
	return &Worker{
		dispatcher: dispatcher,
		publisher:  publisher,
		limiter:    limiter,
		logger:     logger.With("component", "scrape_worker"),
	}
}

// Handle processes one scrape request message.
func (w *Worker) Handle(ctx context.Context, msg messaging.Message) error {
	var request events.ScrapeRequest
	if err := json.Unmarshal(msg.Payload, &request); err != nil {
		// Malformed payloads can never succeed; let them dead-letter.
		return errs.Wrap(errs.KindFatal, err, "failed to decode scrape request")
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return errs.Wrap(errs.KindTimeout, err, "rate limiter wait aborted")
	}

	w.logger.Info("processing scrape request",
		"product_id", request.ProductID, "url", request.URL, "attempt", msg.Attempt)

	product, err := w.dispatcher.Scrape(ctx, request.URL)
	if err != nil {
		w.logger.Warn("scrape failed",
			"product_id", request.ProductID,
			"url", request.URL,
			"kind", errs.KindOf(err).String(),
			"error", err)
		return err
	}

	result := events.PriceScrapeCompleted{
		ProductID:   request.ProductID,
		URL:         request.URL,
		ProductName: product.ProductName,
		InStock:     product.InStock,
		Price:       product.Price,
		Currency:    product.Currency,
		CheckedAt:   time.Now().UTC(),
	}

	if err := w.publisher.Publish(ctx, events.StreamScrapeCompleted, events.TypePriceScrapeCompleted, result); err != nil {
		// The scrape itself worked, but losing the result would silently
		// drop an observation. Unclassified, so it dead-letters.
		return errs.Wrap(errs.KindFatal, err, "failed to publish scrape result")
	}

	return nil
}
