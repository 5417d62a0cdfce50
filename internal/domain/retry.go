package domain

import (
	"math"
	"time"
)

// RetryPolicy is the completion retry schedule. A call is tried Attempts
// times; after failed attempt n (0-indexed, never the last) the caller
// waits InitialDelay * Multiplier^n.
type RetryPolicy struct {
	Attempts       int
	InitialDelay   time.Duration
	Multiplier     float64
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy is 3 attempts, 1s/2s waits, 30s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       3,
		InitialDelay:   time.Second,
		Multiplier:     2,
		AttemptTimeout: 30 * time.Second,
	}
}

// Delay is the wait after failed attempt n.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt)))
}

// TotalWait is the sum of waits when the first failures attempts fail.
func (p RetryPolicy) TotalWait(failures int) time.Duration {
	var d time.Duration
	for n := 0; n < failures && n < p.Attempts-1; n++ {
		d += p.Delay(n)
	}
	return d
}
