package scraper

import (
	"strings"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/models"
)

// TrendyolStrategy extracts product data from trendyol.com pages.
type TrendyolStrategy struct {
	timeouts Timeouts
}

func NewTrendyolStrategy(timeouts Timeouts) *TrendyolStrategy {
	return &TrendyolStrategy{timeouts: timeouts}
}

func (t *TrendyolStrategy) Shop() string {
	return "Trendyol"
}

func (t *TrendyolStrategy) Matches(url string) bool {
	return strings.Contains(url, "trendyol.com")
}

func (t *TrendyolStrategy) Extract(s Session) (*models.ScrapedProduct, error) {
	title, err := s.Title()
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, err, "failed to read trendyol page title")
	}

	if titleContains(title, "sayfa bulunamadı", "aradığınız sayfayı bulamadık") {
		return nil, errs.New(errs.KindNotFound, "trendyol page not found")
	}
	if titleContains(title, "erişim engellendi") || s.IsVisible("#challenge-form") {
		return nil, errs.New(errs.KindBlocked, "trendyol bot challenge detected")
	}

	if err := s.WaitVisible("h1", t.timeouts.Selector); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, err, "timeout waiting for trendyol product title")
	}

	// h1.pr-new-br carries brand + name; plain h1 is the fallback.
	name, ok := visibleText(s, "h1.pr-new-br", "h1")
	if !ok {
		return nil, errs.New(errs.KindStructureChanged, "trendyol product title selector not visible")
	}

	inStock := !anyVisible(s,
		".sold-out-icon",
		"text='Tükendi'",
		"button:has-text('Gelince Haber Ver')",
	)

	price := domPrice(s,
		".price-wrapper .discounted",
		".price-wrapper .ty-plus-price-discounted-price",
		".price-wrapper .new-price",
	)
	if price.IsZero() {
		price = structuredPrice(s)
	}

	if inStock && price.IsZero() {
		return nil, errs.New(errs.KindPriceMissing, "trendyol product in stock but price could not be parsed")
	}

	return &models.ScrapedProduct{
		ProductName: name,
		Price:       price,
		Currency:    "TRY",
		InStock:     inStock,
		ShopName:    t.Shop(),
	}, nil
}
