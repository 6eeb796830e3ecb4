// Package retry runs external calls under a bounded, jittered backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how soon a failed call is retried.
type Policy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// DefaultPolicy retries once after roughly half a second.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 1, InitialInterval: 500 * time.Millisecond}
}

// NoRetry disables retries.
func NoRetry() Policy {
	return Policy{}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = time.Millisecond
	}
	eb.RandomizationFactor = 0.5
	eb.Multiplier = 2
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, p.MaxRetries), ctx)
}

// Do calls op until it succeeds, returns a Permanent error, or the policy is exhausted.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	return backoff.RetryWithData(func() (T, error) {
		return op(ctx)
	}, p.backOff(ctx))
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
