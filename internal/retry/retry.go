package retry

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tastemash/compatibility-service/internal/domain"
)

const (
	defaultAttempts = 3
	defaultStep     = 100 * time.Millisecond
)

// Policy retries transient upstream failures a bounded number of times
// with linearly increasing delays (step, 2*step, ...). Any error that is
// not a domain.TransientUpstreamError stops the retries immediately, and
// the original error always propagates unmodified.
type Policy struct {
	Attempts uint64
	Step     time.Duration

	// OnRetry runs before each re-attempt; used to count retries.
	OnRetry func()
}

func Default() Policy {
	return Policy{Attempts: defaultAttempts, Step: defaultStep}
}

// Do runs fn until it succeeds, returns a permanent error, or the
// attempt budget is spent.
func (p Policy) Do(ctx context.Context, op string, fn func() error) error {
	if p.Attempts == 0 {
		p.Attempts = defaultAttempts
	}
	if p.Step <= 0 {
		p.Step = defaultStep
	}

	operation := func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if domain.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{step: p.Step}, p.Attempts-1), ctx)

	notify := func(error, time.Duration) {
		if p.OnRetry != nil {
			p.OnRetry()
		}
	}

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		log.Printf("[retry] %s failed after %d attempts: %v", op, p.Attempts, err)
		return err
	}
	return nil
}

// linearBackOff implements backoff.BackOff with delays that grow by a
// fixed step each attempt.
type linearBackOff struct {
	step time.Duration
	next time.Duration
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.next += l.step
	return l.next
}

func (l *linearBackOff) Reset() {
	l.next = 0
}
