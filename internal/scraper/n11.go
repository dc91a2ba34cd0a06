package scraper

import (
	"strings"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/models"
)

// N11Strategy extracts product data from n11.com pages.
type N11Strategy struct {
	timeouts Timeouts
}

func NewN11Strategy(timeouts Timeouts) *N11Strategy {
	return &N11Strategy{timeouts: timeouts}
}

func (n *N11Strategy) Shop() string {
	return "N11"
}

func (n *N11Strategy) Matches(url string) bool {
	return strings.Contains(url, "n11.com")
}

func (n *N11Strategy) Extract(s Session) (*models.ScrapedProduct, error) {
	title, err := s.Title()
	if err != nil {
		return nil, errs.Wrap(errs.KindFatal, err, "failed to read n11 page title")
	}

	if titleContains(title, "sayfa bulunamadı", "404") {
		return nil, errs.New(errs.KindNotFound, "n11 page not found")
	}
	if s.IsVisible("#challenge-form") || s.IsVisible("iframe[src*='captcha']") {
		return nil, errs.New(errs.KindBlocked, "n11 bot challenge detected")
	}

	if err := s.WaitVisible("h1", n.timeouts.Selector); err != nil {
		return nil, errs.Wrap(errs.KindTimeout, err, "timeout waiting for n11 product title")
	}

	name, ok := visibleText(s, "h1.proName", "h1.title", "h1")
	if !ok {
		return nil, errs.New(errs.KindStructureChanged, "n11 product title selector not visible")
	}

	inStock := !anyVisible(s,
		".outOfStock",
		"text='Tükendi'",
		"a.btn-grey",
	)

	// N11 keeps the reliable price in structured markup; the DOM price
	// nodes are the fallback.
	price := structuredPrice(s)
	if price.IsZero() {
		price = domPrice(s,
			".newPrice ins",
			".priceContainer .newPrice",
		)
	}

	if inStock && price.IsZero() {
		return nil, errs.New(errs.KindPriceMissing, "n11 product in stock but price could not be parsed")
	}

	return &models.ScrapedProduct{
		ProductName: name,
		Price:       price,
		Currency:    "TRY",
		InStock:     inStock,
		ShopName:    n.Shop(),
	}, nil
}
