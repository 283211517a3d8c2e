package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/vvka-141/csvetl/pkg/csvetl"
)

// ExponentialBackoff doubles the delay after each attempt, capped at
// maxDelay, with symmetric jitter.
type ExponentialBackoff struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64

	// maxAttempts counts retries after the first try; -1 retries forever.
	maxAttempts int

	// jitter of 0.1 spreads each delay by +/- 10%.
	jitter     float64
	jitterFunc func() float64
}

// BackoffOption configures an ExponentialBackoff.
type BackoffOption func(*ExponentialBackoff)

func WithInitialDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.initialDelay = d }
}

func WithMaxDelay(d time.Duration) BackoffOption {
	return func(b *ExponentialBackoff) { b.maxDelay = d }
}

func WithMultiplier(m float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.multiplier = m }
}

func WithJitter(j float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitter = j }
}

// WithJitterFunc replaces the random source. It must return values in [0, 1).
func WithJitterFunc(f func() float64) BackoffOption {
	return func(b *ExponentialBackoff) { b.jitterFunc = f }
}

// NewExponentialBackoff starts at csvetl.DefaultRetryInitialDelay and caps
// at csvetl.DefaultRetryMaxDelay unless overridden.
func NewExponentialBackoff(maxAttempts int, opts ...BackoffOption) *ExponentialBackoff {
	b := &ExponentialBackoff{
		initialDelay: csvetl.DefaultRetryInitialDelay,
		maxDelay:     csvetl.DefaultRetryMaxDelay,
		multiplier:   2.0,
		maxAttempts:  maxAttempts,
		jitter:       0.1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NextDelay returns initialDelay * multiplier^attempt, capped and jittered.
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	delayMs := float64(b.initialDelay.Milliseconds()) * math.Pow(b.multiplier, float64(attempt))
	if capMs := float64(b.maxDelay.Milliseconds()); delayMs > capMs {
		delayMs = capMs
	}

	if b.jitter > 0 {
		random := b.jitterFunc
		if random == nil {
			random = rand.Float64
		}
		offset := (random() - 0.5) * 2.0
		delayMs *= 1.0 + b.jitter*offset
	}

	return time.Duration(delayMs) * time.Millisecond
}

func (b *ExponentialBackoff) MaxAttempts() int {
	return b.maxAttempts
}
