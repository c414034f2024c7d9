// Package retry implements the entry-point retry policy: a fixed number
// of attempts with a fixed delay in between. Every error is retried
// identically; there is deliberately no backoff, jitter, or error
// classification.
package retry

import (
	"context"
	"time"

	"pollbot/pkg/logx"
)

const (
	DefaultAttempts = 3
	DefaultDelay    = 60 * time.Second
)

type Policy struct {
	Attempts int
	Delay    time.Duration
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Delay <= 0 {
		p.Delay = DefaultDelay
	}
	return p
}

// sleep is swapped out by tests.
var sleep = sleepContext

// Do runs fn up to p.Attempts times, logging each failed attempt with
// its index and re-returning the final attempt's error unchanged. The
// inter-attempt delay respects ctx cancellation.
func Do[T any](ctx context.Context, p Policy, log logx.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		log.Warn("attempt failed",
			logx.String("op", op),
			logx.Int("attempt", attempt),
			logx.Int("max_attempts", p.Attempts),
			logx.Err(err))

		if attempt < p.Attempts {
			if serr := sleep(ctx, p.Delay); serr != nil {
				return zero, serr
			}
		}
	}
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
