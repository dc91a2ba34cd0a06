package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/models"
)

func TestSchedulerScanPublishesDueProducts(t *testing.T) {
	store := newFakeStore()
	publisher := &fakePublisher{}

	stale := time.Now().UTC().Add(-2 * time.Hour)
	fresh := time.Now().UTC()

	never := &models.TrackedProduct{ID: uuid.New(), URL: "https://www.trendyol.com/a-p-1", Active: true}
	overdue := &models.TrackedProduct{ID: uuid.New(), URL: "https://www.trendyol.com/b-p-2", Active: true, LastCheckedAt: &stale}
	recent := &models.TrackedProduct{ID: uuid.New(), URL: "https://www.trendyol.com/c-p-3", Active: true, LastCheckedAt: &fresh}
	inactive := &models.TrackedProduct{ID: uuid.New(), URL: "https://www.trendyol.com/d-p-4", Active: false}
	for _, p := range []*models.TrackedProduct{never, overdue, recent, inactive} {
		require.NoError(t, store.Save(context.Background(), p))
	}

	s := NewScheduler(store, publisher, 30*time.Minute, time.Minute, 50, testLogger())
	s.scan(context.Background())

	require.Len(t, publisher.published, 2)
	requested := map[uuid.UUID]bool{}
	for _, event := range publisher.published {
		assert.Equal(t, events.StreamScrapeRequests, event.stream)
		assert.Equal(t, events.TypeScrapeRequested, event.eventType)
		request, ok := event.payload.(events.ScrapeRequest)
		require.True(t, ok)
		requested[request.ProductID] = true
	}
	assert.True(t, requested[never.ID], "a never-checked product is due")
	assert.True(t, requested[overdue.ID], "a stale product is due")
}

func TestSchedulerScanIsolatesPublishFailures(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Save(context.Background(), &models.TrackedProduct{
			ID: uuid.New(), URL: "https://www.trendyol.com/p", Active: true,
		}))
	}

	publisher := &failOncePublisher{}
	s := NewScheduler(store, publisher, 30*time.Minute, time.Minute, 50, testLogger())
	s.scan(context.Background())

	// One publish fails, the other two still go out.
	assert.Equal(t, 3, publisher.calls)
	assert.Equal(t, 2, publisher.succeeded)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	store := newFakeStore()
	s := NewScheduler(store, &fakePublisher{}, 30*time.Minute, 10*time.Millisecond, 50, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}
}

type failOncePublisher struct {
	calls     int
	succeeded int
}

func (f *failOncePublisher) Publish(ctx context.Context, stream, eventType string, payload any) error {
	f.calls++
	if f.calls == 1 {
		return errors.New("redis down")
	}
	f.succeeded++
	return nil
}
