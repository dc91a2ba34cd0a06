// Package browser renders retailer pages with a real Chromium instance.
// One Browser is shared per process; every scrape request gets its own
// fresh context and page so no cookies or challenge state leak between
// attempts.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/efsitax/alertify/internal/scraper"
)

type Options struct {
	Headless       bool
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
	ProxyServer    string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		AcceptLanguage: "tr-TR,tr;q=0.9,en;q=0.8",
		TimezoneID:     "Europe/Istanbul",
		Locale:         "tr-TR",
	}
}

// Browser owns the Chromium process and hands out isolated sessions.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	logger  *slog.Logger
}

func New(opts *Options, logger *slog.Logger) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			"--window-size=1920,1080",
			"--user-agent=" + opts.UserAgent,
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	chromium, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: chromium,
		opts:    opts,
		logger:  logger.With("component", "browser"),
	}, nil
}

// Open creates a fresh context and page for one scrape request.
func (b *Browser) Open(ctx context.Context) (scraper.Session, error) {
	contextOpts := playwright.BrowserNewContextOptions{
		UserAgent:         &b.opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &b.opts.Locale,
		TimezoneId:        &b.opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  b.opts.ViewportWidth,
			Height: b.opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": b.opts.AcceptLanguage,
			"DNT":             "1",
		},
	}

	browserCtx, err := b.browser.NewContext(contextOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	// Hide the automation flag before any page script runs.
	err = browserCtx.AddInitScript(playwright.Script{
		Content: playwright.String(`Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`),
	})
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	page, err := browserCtx.NewPage()
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	// Heavy assets contribute nothing to extraction.
	err = page.Route("**/*", func(route playwright.Route) {
		switch route.Request().ResourceType() {
		case "image", "media", "font":
			route.Abort()
		default:
			route.Continue()
		}
	})
	if err != nil {
		browserCtx.Close()
		return nil, fmt.Errorf("failed to install request filter: %w", err)
	}

	return &pageSession{context: browserCtx, page: page}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// pageSession adapts one playwright page to the scraper session port.
type pageSession struct {
	context playwright.BrowserContext
	page    playwright.Page
}

func (s *pageSession) Navigate(url string, timeout time.Duration) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (s *pageSession) Title() (string, error) {
	return s.page.Title()
}

func (s *pageSession) Content() (string, error) {
	return s.page.Content()
}

func (s *pageSession) WaitVisible(selector string, timeout time.Duration) error {
	return s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
}

func (s *pageSession) IsVisible(selector string) bool {
	visible, err := s.page.Locator(selector).First().IsVisible()
	if err != nil {
		return false
	}
	return visible
}

func (s *pageSession) Text(selector string) (string, error) {
	return s.page.Locator(selector).First().InnerText()
}

func (s *pageSession) Attribute(selector, name string) (string, error) {
	value, err := s.page.Locator(selector).First().GetAttribute(name)
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *pageSession) Count(selector string) int {
	count, err := s.page.Locator(selector).Count()
	if err != nil {
		return 0
	}
	return count
}

func (s *pageSession) Close() error {
	return s.context.Close()
}
