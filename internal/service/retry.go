package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/habitleague/habitleague-server/internal/store"
)

// RetryPolicy bounds retries of transient store failures.
// Only errors matching store.ErrUnavailable are retried.
type RetryPolicy struct {
	Attempts int           // total attempts including the first
	Backoff  time.Duration // wait before the second attempt; doubled after each retry
}

// Do runs op until it succeeds, fails permanently, or attempts run out.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) error {
	_, err := retryValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

func retryValue[T any](ctx context.Context, p RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)
	backoff := p.Backoff

	for attempt := 1; ; attempt++ {
		v, err := op(ctx)
		if err == nil || attempt >= attempts || !errors.Is(err, store.ErrUnavailable) {
			return v, err
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return v, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}
		backoff *= 2
	}
}
