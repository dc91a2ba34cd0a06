package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrackedProduct is a product watched on behalf of one user. It is never
// physically deleted; deactivation flips Active to false.
type TrackedProduct struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	URL           string          `json:"url"`
	ProductName   string          `json:"product_name"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	InStock       bool            `json:"in_stock"`
	Currency      string          `json:"currency"`
	TargetPrice   decimal.Decimal `json:"target_price"`
	Active        bool            `json:"active"`
	LastCheckedAt *time.Time      `json:"last_checked_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	PriceHistory  []PriceHistory  `json:"price_history,omitempty"`
}

// PriceHistory is one observed price point. Entries are append-only.
type PriceHistory struct {
	ID         uuid.UUID       `json:"id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Price      decimal.Decimal `json:"price"`
	DetectedAt time.Time       `json:"detected_at"`
}

// WithObservation returns a copy of the product with the scraped fields
// applied and one new history entry appended. The receiver is not mutated,
// so redelivered results stay safe to re-apply.
func (p TrackedProduct) WithObservation(name string, price decimal.Decimal, inStock bool, currency string, at time.Time) TrackedProduct {
	updated := p
	updated.ProductName = name
	updated.InStock = inStock
	updated.Currency = currency
	updated.CurrentPrice = price
	updated.LastCheckedAt = &at

	history := make([]PriceHistory, len(p.PriceHistory), len(p.PriceHistory)+1)
	copy(history, p.PriceHistory)
	updated.PriceHistory = append(history, PriceHistory{
		ID:         uuid.New(),
		ProductID:  p.ID,
		Price:      price,
		DetectedAt: at,
	})

	return updated
}

// ScrapedProduct is the result of one extraction attempt. It is either
// fully populated or the attempt failed; there is no partial state.
type ScrapedProduct struct {
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	InStock     bool            `json:"in_stock"`
	ShopName    string          `json:"shop_name"`
}
