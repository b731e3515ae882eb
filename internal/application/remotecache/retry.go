package remotecache

import (
	"context"
	"strings"
	"time"

	"github.com/pocketmall/shopdata/internal/core/domain/account"
)

// RetryPolicy is the single parameterized retry shape shared by every cached
// remote resource. Delay before attempt n (1-based, after the first) is
// n * BaseDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// RetryIf decides whether a failed attempt consumes another slot of the
	// budget. Nil means DefaultRetryIf.
	RetryIf func(error) bool
}

// DefaultRetryIf retries everything except well-formed business rejections;
// those are final no matter how many attempts remain.
func DefaultRetryIf(err error) bool {
	_, rejected := account.AsRejection(err)
	return !rejected
}

// Do runs op up to MaxAttempts times, sleeping between attempts and honoring
// ctx cancellation during the sleep. The last error is returned on
// exhaustion.
func (p RetryPolicy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(time.Duration(attempt-1) * p.BaseDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryIf(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// transientMarkers is the known vocabulary of retryable fetch failures.
var transientMarkers = []string{
	"timeout",
	"timed out",
	"deadline exceeded",
	"connection refused",
	"connection reset",
	"no such host",
	"status 500",
	"status 502",
	"status 503",
	"status 504",
	"temporarily unavailable",
}

// IsTransient classifies a fetch failure against the transient-error
// vocabulary. Used for metrics and log labels; the retry budget itself is
// governed by RetryIf.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
