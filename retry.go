package operation

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy configures WithRetry's backoff schedule.
type RetryPolicy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy is a conservative exponential backoff: up to 3
// attempts, starting at 200ms, doubling up to 5s.
var DefaultRetryPolicy = RetryPolicy{
	MaxTries:        3,
	InitialInterval: 200 * time.Millisecond,
	MaxInterval:     5 * time.Second,
	Multiplier:      2,
}

// WithRetry wraps a run body so a failed attempt is retried per policy
// before being surfaced as a final failure. Cancellation (IsCancelled)
// always aborts immediately without consuming a retry. Each attempt's
// 0-based index is exposed to the body via RetryIndexKey. The wait between
// attempts is delegated to the Context's Delayer (so tests can eliminate
// real time), and the effective attempt ceiling is the lesser of policy's
// MaxTries and an inherited MaxRetriesKey cap, if one is set.
func WithRetry[R any](policy RetryPolicy) Modifier[R] {
	return func(next OperationFunc[R]) OperationFunc[R] {
		return func(ctx *Context, cont *Continuation[R]) (R, error) {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = policy.InitialInterval
			b.MaxInterval = policy.MaxInterval
			b.MaxElapsedTime = 0
			if policy.Multiplier > 0 {
				b.Multiplier = policy.Multiplier
			}

			maxTries := policy.MaxTries
			if inherited := Get(ctx, MaxRetriesKey); inherited > 0 && uint(inherited) < maxTries {
				maxTries = uint(inherited)
			}

			delayer := Get(ctx, DelayerKey)
			goCtx := ctx.GoContext()

			var attempt uint
			var v R
			var err error
			for {
				attemptCtx := With(ctx, RetryIndexKey, int(attempt))
				attemptCtx = With(attemptCtx, MaxRetriesKey, int(maxTries))
				v, err = next(attemptCtx, cont)
				if err == nil || IsCancelled(err) {
					return v, err
				}

				attempt++
				if maxTries > 0 && attempt >= maxTries {
					return v, err
				}

				wait := b.NextBackOff()
				if wait == backoff.Stop {
					return v, err
				}
				if derr := delayer.Delay(goCtx, wait); derr != nil {
					return v, derr
				}
			}
		}
	}
}
