package resilience

import (
	"time"
)

// Config tunes the circuit breaker.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5.
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes
	// that closes it again. Default: 2.
	SuccessThreshold int

	// OpenTimeout is how long the circuit stays open before probing.
	// Default: 30s.
	OpenTimeout time.Duration

	// HalfOpenMaxRequests caps probes in flight. Default: 1.
	HalfOpenMaxRequests int

	// DefaultRetryAfter is the block applied to a 429 without a
	// Retry-After header. Default: 60s.
	DefaultRetryAfter time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		OpenTimeout:         30 * time.Second,
		HalfOpenMaxRequests: 1,
		DefaultRetryAfter:   60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = d.OpenTimeout
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = d.HalfOpenMaxRequests
	}
	if c.DefaultRetryAfter <= 0 {
		c.DefaultRetryAfter = d.DefaultRetryAfter
	}
	return c
}
