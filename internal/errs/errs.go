// Package errs defines the scrape failure taxonomy. The retry/dead-letter
// decision in the messaging layer is made from the Kind carried on the
// error value, not from inspecting error strings.
package errs

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindFatal covers any unclassified failure. Fatal messages go to the
	// dead-letter stream instead of being retried.
	KindFatal Kind = iota
	// KindNotFound means the page is confirmed gone. Permanent.
	KindNotFound
	// KindBlocked means an anti-bot challenge was detected. Transient.
	KindBlocked
	// KindTimeout means a bounded navigation or element wait expired. Transient.
	KindTimeout
	// KindStructureChanged means expected content markers were absent.
	// Transient: worth a few retries before giving up.
	KindStructureChanged
	// KindPriceMissing means the item looked in stock but no price parsed.
	// Transient; a silently wrong price is worse than a retry.
	KindPriceMissing
	// KindUnsupported means no extraction strategy matches the URL.
	// Permanent until an operator registers one.
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindBlocked:
		return "blocked"
	case KindTimeout:
		return "timeout"
	case KindStructureChanged:
		return "structure_changed"
	case KindPriceMissing:
		return "price_missing"
	case KindUnsupported:
		return "unsupported"
	default:
		return "fatal"
	}
}

// Retryable reports whether broker redelivery can help.
func (k Kind) Retryable() bool {
	switch k {
	case KindBlocked, KindTimeout, KindStructureChanged, KindPriceMissing:
		return true
	}
	return false
}

// Permanent reports whether the failure must be absorbed without retry.
func (k Kind) Permanent() bool {
	return k == KindNotFound || k == KindUnsupported
}

// ScrapeError is a classified scrape failure.
type ScrapeError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

func New(kind Kind, format string, args ...any) *ScrapeError {
	return &ScrapeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, message string) *ScrapeError {
	return &ScrapeError{Kind: kind, Message: message, Err: err}
}

// KindOf classifies an error. Anything that does not carry a ScrapeError
// in its chain is treated as fatal.
func KindOf(err error) Kind {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindFatal
}
