package download

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy is the retry policy for the fetch loop: an attempt budget and a
// fixed pause between attempts. It is a value so tests can shrink both.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Run executes op until it succeeds, returns a terminal error, or the attempt
// budget is exhausted. op receives the zero-based attempt index so callers
// can vary their directive per attempt.
func (p Policy) Run(ctx context.Context, op func(attempt int) error) error {
	attempt := 0
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Backoff), uint64(p.MaxAttempts-1)),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op(attempt)
		attempt++
		return err
	}, bo)
}

// Terminal marks err so Run stops retrying immediately.
func Terminal(err error) error {
	return backoff.Permanent(err)
}
