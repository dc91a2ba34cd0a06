package tracking

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/messaging"
)

func TestResultHandlerAppliesResult(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, &fakePublisher{}, testLogger())
	handler := NewResultHandler(service)

	product, err := service.CreateTracking(context.Background(), uuid.New(),
		"https://www.trendyol.com/urun-p-1", decimal.Zero)
	require.NoError(t, err)

	payload, err := json.Marshal(events.PriceScrapeCompleted{
		ProductID:   product.ID,
		URL:         product.URL,
		ProductName: "Ürün",
		InStock:     true,
		Price:       decimal.RequireFromString("149.99"),
		Currency:    "TRY",
		CheckedAt:   time.Now().UTC(),
	})
	require.NoError(t, err)

	err = handler.Handle(context.Background(), messaging.Message{ID: "1-0", Payload: payload})
	require.NoError(t, err)

	stored := store.products[product.ID]
	assert.True(t, stored.CurrentPrice.Equal(decimal.RequireFromString("149.99")))
}

func TestResultHandlerMalformedPayload(t *testing.T) {
	handler := NewResultHandler(NewService(newFakeStore(), &fakePublisher{}, testLogger()))

	err := handler.Handle(context.Background(), messaging.Message{ID: "1-0", Payload: []byte("{")})
	require.Error(t, err)
	assert.Equal(t, errs.KindFatal, errs.KindOf(err))
}

func TestResultHandlerStoreFailureIsRetryable(t *testing.T) {
	store := newFakeStore()
	store.findErr = assertErr{}
	handler := NewResultHandler(NewService(store, &fakePublisher{}, testLogger()))

	payload, err := json.Marshal(events.PriceScrapeCompleted{ProductID: uuid.New()})
	require.NoError(t, err)

	err = handler.Handle(context.Background(), messaging.Message{ID: "1-0", Payload: payload})
	require.Error(t, err)
	assert.True(t, errs.KindOf(err).Retryable())
}

type assertErr struct{}

func (assertErr) Error() string { return "store unavailable" }
