package domain

import "time"

// RetryPolicy bounds how transient network failures are retried.
type RetryPolicy struct {
	// MaxAttempts is the number of consecutive failures tolerated before giving up.
	MaxAttempts int

	// Delay is the wait before the first retry.
	Delay time.Duration

	// Multiplier grows the delay between attempts. Values <= 1 keep it fixed.
	Multiplier float64

	// MaxDelay caps the grown delay. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPollInterval is the fixed delay between status polls.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultRetryPolicy retries five times at the poll interval.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		Delay:       DefaultPollInterval,
	}
}

// IsConstant reports whether every retry waits the same delay.
func (p RetryPolicy) IsConstant() bool {
	return p.Multiplier <= 1
}
