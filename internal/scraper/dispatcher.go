package scraper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/efsitax/alertify/internal/errs"
	"github.com/efsitax/alertify/internal/metrics"
	"github.com/efsitax/alertify/internal/models"
)

// Dispatcher runs one scrape attempt end to end: pick a strategy, open a
// fresh session, navigate, extract.
type Dispatcher struct {
	registry   *Registry
	sessions   SessionFactory
	navTimeout time.Duration
	logger     *slog.Logger
}

func NewDispatcher(registry *Registry, sessions SessionFactory, navTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		registry:   registry,
		sessions:   sessions,
		navTimeout: navTimeout,
		logger:     logger.With("component", "dispatcher"),
	}
}

// Scrape extracts product data from one URL. The session is closed before
// returning regardless of outcome.
func (d *Dispatcher) Scrape(ctx context.Context, url string) (*models.ScrapedProduct, error) {
	strategy, err := d.registry.Select(url)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	product, err := d.scrapeWith(ctx, strategy, url)
	metrics.ScrapeDuration.WithLabelValues(strategy.Shop()).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ScrapeAttempts.WithLabelValues(strategy.Shop(), errs.KindOf(err).String()).Inc()
		return nil, err
	}

	metrics.ScrapeAttempts.WithLabelValues(strategy.Shop(), "success").Inc()
	d.logger.Info("scrape succeeded",
		"shop", strategy.Shop(),
		"product_name", product.ProductName,
		"price", product.Price,
		"in_stock", product.InStock,
		"duration_ms", time.Since(start).Milliseconds())

	return product, nil
}

func (d *Dispatcher) scrapeWith(ctx context.Context, strategy Strategy, url string) (*models.ScrapedProduct, error) {
	session, err := d.sessions.Open(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.KindTimeout, err, "failed to open browser session")
	}
	defer func() {
		if err := session.Close(); err != nil {
			d.logger.Warn("failed to close session", "error", err)
		}
	}()

	if err := session.Navigate(url, d.navTimeout); err != nil {
		return nil, classifyNavigation(err)
	}

	return strategy.Extract(session)
}

// classifyNavigation maps a navigation failure onto the taxonomy. The
// driver does not expose typed timeout errors, so this matches on the
// message it emits.
func classifyNavigation(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return errs.Wrap(errs.KindTimeout, err, "navigation timed out")
	}
	return errs.Wrap(errs.KindFatal, err, "navigation failed")
}
