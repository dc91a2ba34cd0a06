package scraper

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/models"
	"github.com/efsitax/alertify/internal/parser"
)

// AmazonStrategy extracts product data from amazon.com.tr pages.
type AmazonStrategy struct {
	timeouts Timeouts
}

func NewAmazonStrategy(timeouts Timeouts) *AmazonStrategy {
	return &AmazonStrategy{timeouts: timeouts}
}

func (a *AmazonStrategy) Shop() string {
	return "Amazon"
}

func (a *AmazonStrategy) Matches(url string) bool {
	return strings.Contains(url, "amazon.com.tr") || strings.Contains(url, "amazon.com")
}

func (a *AmazonStrategy) Extract(s Session) (*models.ScrapedProduct, error) {
	title, err := s.Title()
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, err, "failed to read amazon page title")
	}

	// Captcha check comes before not-found: the robot page title varies
	// between locales but the captcha form does not.
	if s.IsVisible("form[action*='validateCaptcha']") || titleContains(title, "robot check") {
		return nil, errs.New(errs.KindBlocked, "amazon captcha challenge detected")
	}
	if titleContains(title, "page not found", "sayfa bulunamadı") || s.IsVisible("img[alt*='Dogs of Amazon']") {
		return nil, errs.New(errs.KindNotFound, "amazon page not found")
	}

	if err := s.WaitVisible("span#productTitle", a.timeouts.Selector); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, err, "timeout waiting for amazon product title")
	}

	name, ok := visibleText(s, "span#productTitle")
	if !ok {
		return nil, errs.New(errs.KindStructureChanged, "amazon product title selector not visible")
	}

	inStock := a.checkStock(s)
	price := a.extractPrice(s)

	if inStock && price.IsZero() {
		return nil, errs.New(errs.KindPriceMissing, "amazon product in stock but price could not be parsed")
	}

	return &models.ScrapedProduct{
		ProductName: name,
		Price:       price,
		Currency:    "TRY",
		InStock:     inStock,
		ShopName:    a.Shop(),
	}, nil
}

func (a *AmazonStrategy) checkStock(s Session) bool {
	availability, ok := visibleText(s, "#availability")
	if !ok {
		// No availability block at all usually means a non-buyable listing.
		return s.IsVisible("#add-to-cart-button")
	}
	lower := strings.ToLower(availability)
	for _, marker := range []string{"unavailable", "stokta yok", "mevcut değil"} {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}

// extractPrice composes the buy-box price. Amazon splits whole and
// fraction into separate spans, so the containers are probed first and
// the pieces joined before parsing.
func (a *AmazonStrategy) extractPrice(s Session) decimal.Decimal {
	containers := []string{
		".a-price.priceToPay",
		"#corePriceDisplay_desktop_feature_div .a-price",
		".a-price",
	}
	for _, container := range containers {
		if s.Count(container) == 0 {
			continue
		}
		whole, err := s.Text(container + " .a-price-whole")
		if err != nil || strings.TrimSpace(whole) == "" {
			continue
		}
		fraction, err := s.Text(container + " .a-price-fraction")
		if err != nil {
			fraction = "00"
		}
		price := parser.ParsePrice(strings.TrimSpace(whole) + "," + strings.TrimSpace(fraction))
		if !price.IsZero() {
			return price
		}
	}
	// Offscreen span carries the full formatted price in one node.
	if price := domPrice(s, ".a-price .a-offscreen"); !price.IsZero() {
		return price
	}
	return structuredPrice(s)
}
