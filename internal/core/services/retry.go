package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// newBackOff builds the backoff described by a retry policy.
// MaxAttempts counts every attempt, so a policy of 5 allows 4 retries.
func newBackOff(ctx context.Context, p domain.RetryPolicy) backoff.BackOff {
	var b backoff.BackOff
	if p.IsConstant() {
		b = backoff.NewConstantBackOff(p.Delay)
	} else {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = p.Delay
		exp.Multiplier = p.Multiplier
		exp.RandomizationFactor = 0
		exp.MaxInterval = p.MaxDelay
		if exp.MaxInterval == 0 {
			exp.MaxInterval = backoff.DefaultMaxInterval
		}
		exp.MaxElapsedTime = 0
		exp.Reset()
		b = exp
	}

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// retryTransient runs op under the policy. Errors wrapping ErrInvalidInput or
// ErrNoUploadTarget are not retried.
func retryTransient[T any](ctx context.Context, p domain.RetryPolicy, what string, op func() (T, error)) (T, error) {
	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op()
		if err != nil && isPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, newBackOff(ctx, p), func(err error, wait time.Duration) {
		logger.Debug("%s failed (attempt %d), retrying in %s: %v", what, attempt, wait, err)
	})
}

func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrNoUploadTarget) ||
		errors.Is(err, context.Canceled)
}
