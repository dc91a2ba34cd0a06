package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Stream topology. One request queue, one completed-result queue and a
// shared dead-letter stream that failed messages from either side land on.
const (
	StreamScrapeRequests  = "stream:scrape.requests"
	StreamScrapeCompleted = "stream:scrape.completed"
	StreamDeadLetter      = "stream:scrape.dlq"

	GroupScraperWorkers    = "scraper-workers"
	GroupTrackingConsumers = "tracking-consumers"
)

// Event type names carried on the wire.
const (
	TypeScrapeRequested      = "SCRAPE_REQUESTED"
	TypePriceScrapeCompleted = "PRICE_SCRAPE_COMPLETED"
)

// ScrapeRequest asks the scraper side to check one product URL.
type ScrapeRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	URL       string    `json:"url"`
}

// PriceScrapeCompleted reports the outcome of one successful extraction
// back to the tracking side.
type PriceScrapeCompleted struct {
	ProductID   uuid.UUID       `json:"product_id"`
	URL         string          `json:"url"`
	ProductName string          `json:"product_name"`
	InStock     bool            `json:"in_stock"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CheckedAt   time.Time       `json:"checked_at"`
}
