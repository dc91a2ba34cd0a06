package scraper

import (
	"strings"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/models"
)

// HepsiburadaStrategy extracts product data from hepsiburada.com pages.
type HepsiburadaStrategy struct {
	timeouts Timeouts
}

func NewHepsiburadaStrategy(timeouts Timeouts) *HepsiburadaStrategy {
	return &HepsiburadaStrategy{timeouts: timeouts}
}

func (h *HepsiburadaStrategy) Shop() string {
	return "Hepsiburada"
}

func (h *HepsiburadaStrategy) Matches(url string) bool {
	return strings.Contains(url, "hepsiburada.com")
}

func (h *HepsiburadaStrategy) Extract(s Session) (*models.ScrapedProduct, error) {
	title, err := s.Title()
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, err, "failed to read hepsiburada page title")
	}

	if titleContains(title, "sayfa bulunamadı", "böyle bir ürün yok") {
		return nil, errs.New(errs.KindNotFound, "hepsiburada page not found")
	}
	// Hepsiburada serves a "doğrulama" interstitial when it suspects a bot.
	if titleContains(title, "doğrulama") || s.IsVisible("iframe[src*='captcha']") {
		return nil, errs.New(errs.KindBlocked, "hepsiburada bot challenge detected")
	}

	if err := s.WaitVisible("h1", h.timeouts.Selector); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, err, "timeout waiting for hepsiburada product title")
	}

	name, ok := visibleText(s, "h1[data-test-id='title']", "h1")
	if !ok {
		return nil, errs.New(errs.KindStructureChanged, "hepsiburada product title selector not visible")
	}

	inStock := !anyVisible(s,
		"[data-test-id='out-of-stock-button']",
		"button:has-text('Gelince Haber Ver')",
	)

	price := domPrice(s,
		"[data-test-id='checkout-price'] div:nth-child(2)",
		"[data-test-id='non-premium-price'] b",
		"[data-test-id='default-price'] span",
		"[data-test-id='price-current-price']",
	)
	if price.IsZero() {
		price = structuredPrice(s)
	}

	if inStock && price.IsZero() {
		return nil, errs.New(errs.KindPriceMissing, "hepsiburada product in stock but price could not be parsed")
	}

	return &models.ScrapedProduct{
		ProductName: name,
		Price:       price,
		Currency:    "TRY",
		InStock:     inStock,
		ShopName:    h.Shop(),
	}, nil
}
