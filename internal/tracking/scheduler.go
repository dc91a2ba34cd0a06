package tracking

import (
	"context"
	"log/slog"
	"time"

	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/metrics"
)

// Scheduler periodically requests scrapes for products whose last check
// has gone stale.
type Scheduler struct {
	store     Store
	publisher Publisher
	// scanInterval is the staleness threshold; rate is how often the
	// scheduler looks for due products.
	scanInterval time.Duration
	rate         time.Duration
	batchSize    int
	logger       *slog.Logger
}

func NewScheduler(store Store, publisher Publisher, scanInterval, rate time.Duration, batchSize int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:        store,
		publisher:    publisher,
		scanInterval: scanInterval,
		rate:         rate,
		batchSize:    batchSize,
		logger:       logger.With("component", "scheduler"),
	}
}

// Run ticks until ctx is cancelled. One pass runs immediately on start so
// a restart does not wait a full tick to resume scanning.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"scan_interval", s.scanInterval, "rate", s.rate, "batch_size", s.batchSize)

	s.scan(ctx)

	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

// scan requests a scrape for every due product. Failures are isolated per
// product so one bad publish does not starve the rest of the batch.
func (s *Scheduler) scan(ctx context.Context) {
	threshold := time.Now().UTC().Add(-s.scanInterval)

	due, err := s.store.FindDueForScan(ctx, threshold, s.batchSize)
	if err != nil {
		s.logger.Error("failed to query due products", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}

	published := 0
	for _, product := range due {
		request := events.ScrapeRequest{ProductID: product.ID, URL: product.URL}
		err := s.publisher.Publish(ctx, events.StreamScrapeRequests, events.TypeScrapeRequested, request)
		if err != nil {
			s.logger.Error("failed to publish scrape request",
				"product_id", product.ID, "error", err)
			continue
		}
		metrics.RequestsPublished.Inc()
		published++
	}

	s.logger.Info("scan pass complete", "due", len(due), "published", published)
}
