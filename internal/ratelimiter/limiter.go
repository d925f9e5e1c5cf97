package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// DestinationLimiters holds one token bucket per configured webhook
// destination, so one chatty library cannot hammer an endpoint faster than
// it agreed to accept. Burst equals the rate: no "saved up" burst beyond
// the configured per-second maximum.
type DestinationLimiters struct {
	limiters map[string]*rate.Limiter
}

// New creates a limiter of ratePerSec tokens per second for each URL.
func New(urls []string, ratePerSec int) *DestinationLimiters {
	r := rate.Limit(ratePerSec)
	limiters := make(map[string]*rate.Limiter, len(urls))
	for _, u := range urls {
		limiters[u] = rate.NewLimiter(r, ratePerSec)
	}
	return &DestinationLimiters{limiters: limiters}
}

// Wait blocks until the destination's limiter grants a token. Destinations
// added after construction are unknown and pass through unthrottled.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (dl *DestinationLimiters) Wait(ctx context.Context, url string) error {
	lim, ok := dl.limiters[url]
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}
