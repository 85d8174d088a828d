package task

import (
	"math/rand"
	"time"
)

// BackoffConfig controls the retry delay applied when a failed delivery is
// handed back to the queue. A zero BaseDelay disables explicit backoff and
// retries happen when the visibility timeout lapses.
type BackoffConfig struct {
	BaseDelay time.Duration // e.g. 1s
	MaxDelay  time.Duration // e.g. 30s
}

// Enabled reports whether failed deliveries are rescheduled explicitly.
func (c BackoffConfig) Enabled() bool {
	return c.BaseDelay > 0
}

// RetryDelay computes the delay before the next attempt using exponential
// backoff with full jitter. attempt is 1-based (1 => up to BaseDelay).
func RetryDelay(attempt int, cfg BackoffConfig, rng *rand.Rand) time.Duration {
	if !cfg.Enabled() {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		attempt = 30
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}

	// exponential: base * 2^(attempt-1)
	delay := cfg.BaseDelay << (attempt - 1)

	// cap, also catching overflow
	if delay > cfg.MaxDelay || delay <= 0 {
		delay = cfg.MaxDelay
	}

	// full jitter: random in [0, delay]
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return time.Duration(rng.Int63n(int64(delay) + 1))
}
