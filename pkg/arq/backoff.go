package arq

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// Backoff grows the retransmission timeout with each attempt of a frame.
type Backoff struct {
	// Multiplier is applied once per retransmission. Zero means 1.
	Multiplier float64

	// MaxTimeout caps the grown timeout. Zero means no cap.
	MaxTimeout time.Duration

	// Jitter randomizes the timeout by ±Jitter of its value, in [0, 1).
	Jitter float64
}

// Validate checks the backoff parameters.
func (b Backoff) Validate() error {
	if b.Multiplier != 0 && b.Multiplier < 1 {
		return &ConfigurationError{Field: "backoff.multiplier", Reason: fmt.Sprintf("must be >= 1, got %g", b.Multiplier)}
	}
	if b.MaxTimeout < 0 {
		return &ConfigurationError{Field: "backoff.max_timeout", Reason: "must not be negative"}
	}
	if b.Jitter < 0 || b.Jitter >= 1 {
		return &ConfigurationError{Field: "backoff.jitter", Reason: fmt.Sprintf("must be in [0, 1), got %g", b.Jitter)}
	}
	return nil
}

// Timeout returns the timer duration for a frame that has been
// transmitted attempts times. rng may be nil to disable jitter.
func (b Backoff) Timeout(base time.Duration, attempts int, rng *rand.Rand) time.Duration {
	d := float64(base)
	if b.Multiplier > 1 && attempts > 1 {
		d *= math.Pow(b.Multiplier, float64(attempts-1))
	}
	if b.MaxTimeout > 0 && d > float64(b.MaxTimeout) {
		d = float64(b.MaxTimeout)
	}
	if b.Jitter > 0 && rng != nil {
		d += d * b.Jitter * (rng.Float64()*2 - 1)
	}
	if d < 1 {
		d = 1
	}
	return time.Duration(d)
}
