package source

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// BackoffPolicy is shared by every connector. The delay before attempt n
// (1-based) is min(BaseDelay * Multiplier^n, MaxDelay); after MaxAttempts
// consecutive failures no further attempt is scheduled.
type BackoffPolicy struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	MaxAttempts int
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  1.5,
		MaxAttempts: 10,
	}
}

// Delay returns the delay scheduled before attempt n.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// NewBackOff returns a stateful sequence yielding Delay(1), Delay(2), ... and
// backoff.Stop once MaxAttempts delays were handed out. Reset starts over.
func (p BackoffPolicy) NewBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.Delay(1)
	exp.Multiplier = p.Multiplier
	exp.MaxInterval = p.MaxDelay
	exp.RandomizationFactor = 0
	exp.MaxElapsedTime = 0
	exp.Reset()

	if p.MaxAttempts <= 0 {
		return exp
	}
	return backoff.WithMaxRetries(exp, uint64(p.MaxAttempts))
}
