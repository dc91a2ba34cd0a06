package scraper

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/models"
	"github.com/efsitax/alertify/internal/parser"
)

// Strategy extracts product data from one retailer's pages. New sites are
// added by registering another variant, not by touching existing ones.
type Strategy interface {
	Shop() string
	Matches(url string) bool
	Extract(session Session) (*models.ScrapedProduct, error)
}

// Registry holds strategies in registration order and selects the first
// whose Matches accepts the URL.
type Registry struct {
	strategies []Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	return &Registry{strategies: strategies}
}

// DefaultRegistry wires every supported retailer.
func DefaultRegistry(timeouts Timeouts) *Registry {
	return NewRegistry(
		NewTrendyolStrategy(timeouts),
		NewHepsiburadaStrategy(timeouts),
		NewAmazonStrategy(timeouts),
		NewN11Strategy(timeouts),
	)
}

// Select returns the first matching strategy. No match is an Unsupported
// failure: a configuration gap, not a transient fault.
func (r *Registry) Select(url string) (Strategy, error) {
	for _, s := range r.strategies {
		if s.Matches(url) {
			return s, nil
		}
	}
	return nil, errs.New(errs.KindUnsupported, "no scraping strategy registered for url %s", url)
}

// Timeouts bounds the per-page element waits shared by all strategies.
type Timeouts struct {
	Selector time.Duration
}

// visibleText returns the inner text of the first visible selector in the
// chain, or false when none of them is present.
func visibleText(s Session, selectors ...string) (string, bool) {
	for _, selector := range selectors {
		if !s.IsVisible(selector) {
			continue
		}
		text, err := s.Text(selector)
		if err != nil {
			continue
		}
		return strings.TrimSpace(text), true
	}
	return "", false
}

// anyVisible reports whether any selector in the chain is visible.
func anyVisible(s Session, selectors ...string) bool {
	for _, selector := range selectors {
		if s.IsVisible(selector) {
			return true
		}
	}
	return false
}

// domPrice walks a selector chain and returns the first parsable price.
func domPrice(s Session, selectors ...string) decimal.Decimal {
	for _, selector := range selectors {
		if s.Count(selector) == 0 {
			continue
		}
		text, err := s.Text(selector)
		if err != nil {
			continue
		}
		if price := parser.ParsePrice(text); !price.IsZero() {
			return price
		}
	}
	return decimal.Zero
}

// structuredPrice falls back to the page's machine-readable price markup.
func structuredPrice(s Session) decimal.Decimal {
	html, err := s.Content()
	if err != nil {
		return decimal.Zero
	}
	return parser.StructuredPrice(html)
}

func titleContains(title string, markers ...string) bool {
	lower := strings.ToLower(title)
	for _, marker := range markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
