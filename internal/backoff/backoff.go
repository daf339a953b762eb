// Package backoff implements the retry schedule used for judgment service
// calls. Delays grow exponentially with a small linear jitter so repeated
// rate-limit responses spread out instead of hammering the API.
package backoff

import (
	"context"
	"math"
	"time"
)

// Policy describes an exponential retry schedule.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Base is the exponent base for the delay in seconds.
	Base float64
	// Jitter is added once per completed attempt.
	Jitter time.Duration
}

// Default returns the screening pipeline schedule: five attempts with
// pauses of roughly 2, 4, 8 and 16 seconds between them.
func Default() Policy {
	return Policy{
		MaxAttempts: 5,
		Base:        2.0,
		Jitter:      100 * time.Millisecond,
	}
}

// Delay returns the pause taken after the given 1-based attempt fails.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exp := time.Duration(math.Pow(p.Base, float64(attempt)) * float64(time.Second))
	return exp + time.Duration(attempt)*p.Jitter
}

// Sleep blocks for the attempt's delay, returning early with the context
// error if the context is cancelled first.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.Delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
