// Package parser normalizes price text scraped from Turkish retail pages.
package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

var (
	nonPrice     = regexp.MustCompile(`[^0-9.]`)
	ldJSONPrice  = regexp.MustCompile(`"price"\s*:\s*"?([0-9.,]+)"?`)
	machinePrice = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)
)

// ParsePrice converts locale-formatted price text ("1.299,90 TL") into an
// exact decimal. The Turkish format uses '.' as thousands separator and
// ',' as decimal separator. It never fails: anything unparsable yields
// zero, which callers treat as "missing", never as "free".
func ParsePrice(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}

	// Suffix lines like "(KDV Dahil)" follow the amount on some pages.
	clean := strings.SplitN(raw, "\n", 2)[0]
	clean = strings.ReplaceAll(clean, "TL", "")
	clean = strings.ReplaceAll(clean, "₺", "")
	clean = strings.ReplaceAll(clean, " ", "")
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")
	clean = nonPrice.ReplaceAllString(clean, "")

	price, err := decimal.NewFromString(clean)
	if err != nil || price.IsNegative() {
		return decimal.Zero
	}
	return price
}

// Meta tags that carry a machine-readable price, in preference order.
var priceMetaSelectors = []string{
	"meta[property='product:price:amount']",
	"meta[property='og:price:amount']",
	"meta[name='twitter:data1']",
}

// StructuredPrice pulls a price out of the page's machine-readable
// markup: price meta tags first, then a "price" field inside JSON-LD
// scripts. Zero when neither is present.
func StructuredPrice(html string) decimal.Decimal {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return decimal.Zero
	}

	for _, selector := range priceMetaSelectors {
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok || content == "" {
			continue
		}
		if price := parseMachineOrLocale(content); !price.IsZero() {
			return price
		}
	}

	result := decimal.Zero
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		matches := ldJSONPrice.FindStringSubmatch(s.Text())
		if len(matches) < 2 {
			return true
		}
		if price := parseMachineOrLocale(matches[1]); !price.IsZero() {
			result = price
			return false
		}
		return true
	})

	return result
}

// parseMachineOrLocale handles structured markup, where the price may be
// either dot-decimal machine format ("1299.90") or the same localized
// text shown on the page. ParsePrice alone would read the machine dot as
// a thousands separator.
func parseMachineOrLocale(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if machinePrice.MatchString(raw) {
		if price, err := decimal.NewFromString(raw); err == nil && !price.IsNegative() {
			return price
		}
	}
	return ParsePrice(raw)
}
