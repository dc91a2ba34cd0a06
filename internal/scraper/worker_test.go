package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/messaging"
)

type capturingPublisher struct {
	stream    string
	eventType string
	payload   any
	err       error
	calls     int
}

func (p *capturingPublisher) Publish(ctx context.Context, stream, eventType string, payload any) error {
	p.calls++
	p.stream = stream
	p.eventType = eventType
	p.payload = payload
	return p.err
}

type noopLimiter struct{}

func (noopLimiter) Wait(ctx context.Context) error { return ctx.Err() }

func newTestWorker(session *fakeSession, publisher *capturingPublisher) *Worker {
	dispatcher := NewDispatcher(DefaultRegistry(testTimeouts), &fakeFactory{session: session}, time.Second, testLogger())
	return NewWorker(dispatcher, publisher, noopLimiter{}, testLogger())
}

func requestMessage(t *testing.T, productID uuid.UUID, url string) messaging.Message {
	t.Helper()
	payload, err := json.Marshal(events.ScrapeRequest{ProductID: productID, URL: url})
	require.NoError(t, err)
	return messaging.Message{ID: "1-0", Type: events.TypeScrapeRequested, Payload: payload}
}

func TestWorkerHandlePublishesResult(t *testing.T) {
	session := &fakeSession{
		title:   "Pamuklu Tişört - Trendyol",
		visible: map[string]bool{"h1.pr-new-br": true, ".price-wrapper .discounted": true},
		texts: map[string]string{
			"h1.pr-new-br":               "Marka Pamuklu Tişört",
			".price-wrapper .discounted": "899,90 TL",
		},
	}
	publisher := &capturingPublisher{}
	worker := newTestWorker(session, publisher)

	productID := uuid.New()
	err := worker.Handle(context.Background(), requestMessage(t, productID, "https://www.trendyol.com/urun-p-1"))
	require.NoError(t, err)

	assert.Equal(t, events.StreamScrapeCompleted, publisher.stream)
	assert.Equal(t, events.TypePriceScrapeCompleted, publisher.eventType)

	result, ok := publisher.payload.(events.PriceScrapeCompleted)
	require.True(t, ok)
	assert.Equal(t, productID, result.ProductID)
	assert.Equal(t, "Marka Pamuklu Tişört", result.ProductName)
	assert.Equal(t, "899.9", result.Price.String())
	assert.True(t, result.InStock)
	assert.False(t, result.CheckedAt.IsZero())
}

func TestWorkerHandleMalformedPayload(t *testing.T) {
	publisher := &capturingPublisher{}
	worker := newTestWorker(&fakeSession{}, publisher)

	err := worker.Handle(context.Background(), messaging.Message{ID: "1-0", Payload: []byte("not json")})
	require.Error(t, err)
	assert.Equal(t, errs.KindFatal, errs.KindOf(err))
	assert.Zero(t, publisher.calls)
}

func TestWorkerHandleScrapeFailurePropagatesKind(t *testing.T) {
	session := &fakeSession{title: "Sayfa Bulunamadı - Trendyol"}
	publisher := &capturingPublisher{}
	worker := newTestWorker(session, publisher)

	err := worker.Handle(context.Background(), requestMessage(t, uuid.New(), "https://www.trendyol.com/urun-p-1"))
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
	assert.Zero(t, publisher.calls, "failed scrapes must not publish results")
}

func TestWorkerHandlePublishFailure(t *testing.T) {
	session := &fakeSession{
		title:   "Pamuklu Tişört - Trendyol",
		visible: map[string]bool{"h1.pr-new-br": true, ".price-wrapper .discounted": true},
		texts: map[string]string{
			"h1.pr-new-br":               "Marka Pamuklu Tişört",
			".price-wrapper .discounted": "899,90 TL",
		},
	}
	publisher := &capturingPublisher{err: errors.New("redis down")}
	worker := newTestWorker(session, publisher)

	err := worker.Handle(context.Background(), requestMessage(t, uuid.New(), "https://www.trendyol.com/urun-p-1"))
	require.Error(t, err)
	assert.Equal(t, errs.KindFatal, errs.KindOf(err))
}
