package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindClassification(t *testing.T) {
	tests := []struct {
		kind      Kind
		retryable bool
		permanent bool
	}{
		{KindFatal, false, false},
		{KindNotFound, false, true},
		{KindBlocked, true, false},
		{KindTimeout, true, false},
		{KindStructureChanged, true, false},
		{KindPriceMissing, true, false},
		{KindUnsupported, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.kind.Retryable())
			assert.Equal(t, tt.permanent, tt.kind.Permanent())
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(New(KindNotFound, "gone")))
	assert.Equal(t, KindFatal, KindOf(errors.New("plain error")))
	assert.Equal(t, KindFatal, KindOf(nil))

	// Kind survives wrapping with %w.
	wrapped := fmt.Errorf("handler failed: %w", New(KindBlocked, "captcha"))
	assert.Equal(t, KindBlocked, KindOf(wrapped))
}

func TestScrapeErrorMessage(t *testing.T) {
	err := Wrap(KindTimeout, errors.New("deadline exceeded"), "navigation timed out")
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "navigation timed out")
	assert.Contains(t, err.Error(), "deadline exceeded")

	bare := New(KindUnsupported, "no strategy for %s", "example.com")
	assert.Contains(t, bare.Error(), "no strategy for example.com")
	assert.Nil(t, errors.Unwrap(bare))
}
