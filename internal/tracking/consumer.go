package tracking

import (
	"context"
	"encoding/json"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/events"
	"github.com/efsitax/alertify/internal/messaging"
	"github.com/efsitax/alertify/internal/metrics"
)

// ResultHandler adapts the service's result application to the messaging
// consumer contract.
type ResultHandler struct {
	service *Service
}

func NewResultHandler(service *Service) *ResultHandler {
	return &ResultHandler{service: service}
}

func (h *ResultHandler) Handle(ctx context.Context, msg messaging.Message) error {
	var result events.PriceScrapeCompleted
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		metrics.ResultsApplied.WithLabelValues("malformed").Inc()
		return errs.Wrap(errs.KindFatal, err, "failed to decode scrape result")
	}

	applied, err := h.service.HandleScrapeResult(ctx, result)
	if err != nil {
		metrics.ResultsApplied.WithLabelValues("error").Inc()
		// Store failures are almost always transient; redelivery applies
		// the result once the database is reachable again.
		return errs.Wrap(errs.KindTimeout, err, "failed to apply scrape result")
	}

	if applied {
		metrics.ResultsApplied.WithLabelValues("applied").Inc()
	} else {
		metrics.ResultsApplied.WithLabelValues("skipped").Inc()
	}
	return nil
}
