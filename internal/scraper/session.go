package scraper

import (
	"context"
	"time"
)

// Session is one isolated rendering context for a single page load.
// Implementations must never share browser state between sessions.
type Session interface {
	// Navigate loads the URL under a bounded timeout.
	Navigate(url string, timeout time.Duration) error
	Title() (string, error)
	// Content returns the rendered page HTML.
	Content() (string, error)
	// WaitVisible blocks until the first element matching selector is
	// visible or the timeout expires.
	WaitVisible(selector string, timeout time.Duration) error
	IsVisible(selector string) bool
	// Text returns the inner text of the first matching element.
	Text(selector string) (string, error)
	Attribute(selector, name string) (string, error)
	Count(selector string) int
	Close() error
}

// SessionFactory opens fresh sessions. Each scrape request owns exactly
// one session for its lifetime.
type SessionFactory interface {
	Open(ctx context.Context) (Session, error)
}
