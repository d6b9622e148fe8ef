// Package resilient provides the shared retry wrapper used by every outbound
// client adapter. One logical call gets bounded attempts with exponential
// backoff under a single overall deadline; which errors are worth retrying
// is the caller's policy.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/crediscan/crediscan/internal/faults"
)

// Policy parameterizes a resilient call.
type Policy struct {
	// MaxAttempts bounds total attempts, first try included. Zero means 3.
	MaxAttempts int
	// CallDeadline bounds the wall clock for all attempts of one logical
	// call. Zero means 45s. Exceeding it fails the call with a timeout
	// fault regardless of remaining attempts.
	CallDeadline time.Duration
	// InitialInterval seeds the exponential backoff. Zero means 500ms.
	InitialInterval time.Duration
	// MaxInterval caps the backoff between attempts. Zero means 10s.
	MaxInterval time.Duration
	// Retryable decides whether an attempt error is transient. Nil means
	// faults.IsRetryable.
	Retryable func(error) bool
	// Logger receives per-retry warnings. Nil disables retry logging.
	Logger *zap.Logger
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.CallDeadline <= 0 {
		p.CallDeadline = 45 * time.Second
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = 500 * time.Millisecond
	}
	if p.MaxInterval <= 0 {
		p.MaxInterval = 10 * time.Second
	}
	if p.Retryable == nil {
		p.Retryable = faults.IsRetryable
	}
	return p
}

// Do runs fn with retries per the policy. op names the logical call for
// fault reporting and logs. Non-retryable errors fail immediately; deadline
// expiry fails with a transient timeout fault.
func Do[T any](ctx context.Context, policy Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	policy = policy.withDefaults()

	callCtx, cancel := context.WithTimeout(ctx, policy.CallDeadline)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = policy.InitialInterval
	eb.MaxInterval = policy.MaxInterval
	eb.MaxElapsedTime = policy.CallDeadline

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(policy.MaxAttempts-1)), callCtx)

	attempt := 0
	operation := func() (T, error) {
		attempt++
		result, err := fn(callCtx)
		if err == nil {
			return result, nil
		}
		if !policy.Retryable(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	notify := func(err error, wait time.Duration) {
		if policy.Logger != nil {
			policy.Logger.Warn("retrying call",
				zap.String("op", op),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(err))
		}
	}

	result, err := backoff.RetryNotifyWithData(operation, b, notify)
	if err != nil {
		if callCtx.Err() != nil && !errors.Is(ctx.Err(), context.Canceled) {
			return result, faults.Timeout(op, err)
		}
		return result, err
	}
	return result, nil
}
